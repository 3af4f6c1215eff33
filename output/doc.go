// Package output renders transcripts to txt, json and markdown and stores
// them in the output directory.
//
// File names derive from the video id and title only, so transcribing the
// same source again overwrites the previous files.
package output
