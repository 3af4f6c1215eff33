// Package transcription defines the speech-to-text engine contract.
//
// Engines return a provider.Iterator of time-aligned Segments so callers
// can consume results without the engine holding the whole transcript.
// Implementations live in subpackages: whispercpp drives the whisper.cpp
// command line, whisper talks to a faster-whisper HTTP sidecar.
package transcription
