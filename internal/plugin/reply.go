package plugin

import (
	"fmt"
	"sync"

	"github.com/desertthunder/audioquery/internal/models"
)

// Response is the outcome of one call: a value, an error code or "not implemented".
type Response struct {
	Value          any    `json:"result,omitempty"`
	Code           string `json:"code,omitempty"`
	Message        string `json:"message,omitempty"`
	Details        any    `json:"details,omitempty"`
	NotImplemented bool   `json:"not_implemented,omitempty"`
}

// Failed reports whether the response carries an error or "not implemented".
func (r Response) Failed() bool {
	return r.Code != "" || r.NotImplemented
}

// Err returns the response's failure as an error, or nil.
func (r Response) Err() error {
	switch {
	case r.NotImplemented:
		return fmt.Errorf("%s: method not implemented", models.CodeNotImplemented)
	case r.Code != "":
		return fmt.Errorf("%s: %s", r.Code, r.Message)
	default:
		return nil
	}
}

// ChannelReply is a [models.Reply] that sends the first delivery on a channel and drops the rest.
type ChannelReply struct {
	once sync.Once
	ch   chan Response
}

func NewChannelReply() *ChannelReply {
	return &ChannelReply{ch: make(chan Response, 1)}
}

func (r *ChannelReply) deliver(resp Response) {
	r.once.Do(func() { r.ch <- resp })
}

func (r *ChannelReply) Success(value any) {
	r.deliver(Response{Value: value})
}

func (r *ChannelReply) Error(code, message string, details any) {
	r.deliver(Response{Code: code, Message: message, Details: details})
}

func (r *ChannelReply) NotImplemented() {
	r.deliver(Response{Code: models.CodeNotImplemented, NotImplemented: true})
}

// Done yields the one response.
func (r *ChannelReply) Done() <-chan Response {
	return r.ch
}
