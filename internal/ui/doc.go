// Package ui implements the interactive operator screens using bubbletea's Elm architecture.
//
// Two models are provided:
//  1. [PermissionModel] : watches the permission requests a running server holds for an
//     operator and grants or denies the selected one
//  2. [ScanModel] : runs a library scan and follows its progress updates
//
// Both implement bubbletea's Init/Update/View pattern. Keyboard navigation uses vim-style
// bindings (j/k, y/n, r, q) with contextual help from charmbracelet/bubbles/help.
//
// The lipgloss [Palette] is also used by the CLI for plain status lines.
package ui
