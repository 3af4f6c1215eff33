// Package httpclient provides a small configurable HTTP client with typed
// error classification, optional retry and streaming downloads.
//
// It backs model downloads and the HTTP transcription sidecar.
//
//	retry := resilience.DownloadRetryConfig()
//	retry.RetryIf = httpclient.IsRetryable
//	client, err := httpclient.New(httpclient.Config{
//	    BaseURL: "http://localhost:8387",
//	    Retry:   &retry,
//	})
//
//	resp, err := client.Do(ctx, httpclient.Request{
//	    Method: http.MethodGet,
//	    Path:   "/health",
//	})
package httpclient
