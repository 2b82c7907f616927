package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/audioquery/internal/permissions"
)

var _ list.Item = pendingItem{}

// pendingItem wraps [permissions.PendingRequest] to implement [list.Item].
type pendingItem struct {
	request permissions.PendingRequest
}

func (i pendingItem) FilterValue() string { return i.request.Permission }
func (i pendingItem) Title() string       { return i.request.Permission }
func (i pendingItem) Description() string {
	return fmt.Sprintf("request code %d", i.request.Code)
}
