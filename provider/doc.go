// Package provider holds the small generic vocabulary shared by pluggable
// backends: the Provider identity interface, a named factory Registry and
// the pull-based Iterator used to stream results such as transcript
// segments.
package provider
