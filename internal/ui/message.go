package ui

import (
	"time"

	"github.com/desertthunder/audioquery/internal/permissions"
	"github.com/desertthunder/audioquery/internal/scanner"
	"github.com/desertthunder/audioquery/internal/tasks"
)

type pendingFetchedMsg struct {
	pending []permissions.PendingRequest
	err     error
}

type resolvedMsg struct {
	request permissions.PendingRequest
	granted bool
	handled bool
	err     error
}

type tickMsg time.Time

type progressUpdateMsg tasks.ProgressUpdate

type scanCompleteMsg struct {
	result *scanner.Result
	err    error
}
