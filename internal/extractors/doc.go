// Package extractors provides implementations of the Extractor
// interface for the supported document formats. Each extractor knows
// how to turn raw file bytes of one format into plain UTF-8 text.
//
// Extractors are registered with the Registry at startup.
package extractors
