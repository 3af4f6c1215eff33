// Package model manages whisper.cpp model files.
//
// Each tier (tiny, base, small, medium, large) maps to one ggml file in the
// models directory. Registry.Resolve returns a ready file, downloading it
// from the configured host when allowed. Downloads go through a temp file
// and are shared between concurrent callers via singleflight.
package model
