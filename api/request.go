package api

import "github.com/fiolab/fiorun/internal/fio"

// RunReq is a benchmarking run request as it arrives over the wire.
type RunReq struct {
	RunUuid string `json:"run_uuid"`

	Doc fio.JobDoc `json:"doc"`

	// ResSqsUrl, when set, is the queue the worker streams responses to.
	ResSqsUrl string `json:"res_sqs_url,omitempty"`
}
