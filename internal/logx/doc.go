// Package logx configures bato's structured logging.
//
// It is a small wrapper (logx.Logger) on top of zerolog:
//   - Console output on stderr, readable (short timestamp + short caller)
//   - Optional file output, JSON-structured
package logx
