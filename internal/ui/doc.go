// Package ui provides the styled line output used by stylesync's
// non-dashboard commands (init, doctor, serve).
//
//	ColorSuccess   (green)  - Successful operations
//	ColorError     (red)    - Failures and errors
//	ColorWarning   (yellow) - Warnings
//	ColorInfo      (cyan)   - Informational messages
//	ColorMuted     (gray)   - Secondary text, timing info
//
// The Spinner animates a single status line:
//
//	s := ui.NewSpinner("Connecting to ws://localhost:8000/ws/metrics")
//	s.Start()
//	// ... do work ...
//	s.Success() // or s.Fail()
package ui
