// Package format lays out generated Java text so that it sits naturally in
// the surrounding source: matching indentation and breaking long stream
// pipelines one call per line.
package format

// Line width - the target maximum line length for generated code
const MaxLineWidth = 120

// Pipelines longer than this are broken one call per line even when they
// would fit, as long as they have more than ChainMinCalls calls.
const (
	ChainThresholdPercent = 80
	ChainMinCalls         = 3
)

// Computed thresholds - derived from MaxLineWidth and percentages
var (
	ChainThreshold = MaxLineWidth * ChainThresholdPercent / 100 // 96 chars
)

// Indentation
const (
	TabWidth           = 4      // Display width of a tab character
	DefaultIndent      = "    " // Used when the file gives no hint
	ContinuationIndent = 2      // Indent levels added for chain continuation lines
)
