// Package io provides JSON import and export of pattern snapshots.
//
// # Overview
//
// A snapshot records one generation: the request that produced it, the macro
// tier's bias diagnostics and the four tiers as 8-bit fields. Snapshots are
// what regression checks compare against; a stored baseline can be diffed
// with a fresh generation using field.Compare without re-running the
// generator that produced the baseline.
//
// # JSON Format
//
//	{
//	  "version": 1,
//	  "request": {"primary": "voronoi", "secondary": "none", ...},
//	  "bias": {"center": 0.41, "corner": 0.44, "edge": 0.43, "ratio": 0.94, "window": 12},
//	  "correction": {"before": {...}, "after": {...}, "iterations": 1, ...},
//	  "tiers": [
//	    {"name": "macro", "width": 64, "height": 64, "wrap": "clamp",
//	     "pixels_per_unit": 256, "data": "<base64>"}
//	  ]
//	}
//
// Tier data is row-major, one byte per pixel, base64 encoded by
// encoding/json. Quantizing to bytes matches what the PNG artifacts hold, so
// a snapshot taken from decoded PNGs equals one taken from the live sprites.
//
// # Import
//
// Use [ImportJSON] to read a snapshot from a file path, or [ReadJSON] to read
// from any io.Reader. Both check the version and that every tier's data
// length matches its dimensions.
//
// # Export
//
// Use [FromSprites] to capture a generation, then [ExportJSON] or
// [WriteJSON] to persist it.
package io
