// Package logger provides structured logging on top of zerolog.
//
// Logs go to stderr by default: in stdio mode stdout is the protocol
// channel and must only ever carry JSON-RPC frames.
//
//	log := logger.Get("job")
//	log.Info("stage finished", logger.Fields(logger.FieldJobID, id, logger.FieldStage, "extracting"))
package logger
