// Package ui provides the Bubble Tea terminal interface for bgremover.
//
// The model renders one of four screens, one per session state:
//
//   - initial: a file picker filtered to image extensions, plus a path input
//     that accepts typed, pasted or terminal-dropped paths
//   - loading: a spinner while the model works; r cancels
//   - result: a half-block preview of the processed image; s saves it
//   - error: the failure text; r starts over
//
// The API call never runs on the event loop. Submitting returns a tea.Cmd
// that performs the request and reports back with an outcome message, which
// the model hands to the session controller.
package ui
