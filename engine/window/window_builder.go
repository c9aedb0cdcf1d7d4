package window

// WindowBuilderOption is a functional option applied by NewWindow before the platform window opens.
type WindowBuilderOption func(w *engineWindow)

// WithTitle sets the title bar text.
//
// Parameters:
//   - title: the title
//
// Returns:
//   - WindowBuilderOption: the option
func WithTitle(title string) WindowBuilderOption {
	return func(w *engineWindow) {
		w.title = title
	}
}

// WithWidth sets the requested width in screen coordinates. The framebuffer width reported by
// Width may differ on high-DPI displays.
//
// Parameters:
//   - width: the requested width
//
// Returns:
//   - WindowBuilderOption: the option
func WithWidth(width int) WindowBuilderOption {
	return func(w *engineWindow) {
		w.width = width
	}
}

// WithHeight sets the requested height in screen coordinates.
//
// Parameters:
//   - height: the requested height
//
// Returns:
//   - WindowBuilderOption: the option
func WithHeight(height int) WindowBuilderOption {
	return func(w *engineWindow) {
		w.height = height
	}
}
