// Package observability wires OpenTelemetry tracing and metrics.
//
// Export is off by default; Init switches on OTLP/HTTP export of traces and
// metrics when configured. Instruments created before or without Init
// record into the global no-op providers.
//
//	p, err := observability.Init(ctx, cfg.Observability, "video-transcriber-mcp", version.GetShortVersion(), "production")
//	defer p.Shutdown(ctx)
//
//	metrics := observability.MustMetrics("video-transcriber-mcp")
//	ctx, span := observability.StartSpan(ctx, observability.SpanJobStage)
//	defer span.End()
package observability
