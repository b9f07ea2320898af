// Package logging builds the process slog.Logger and carries request-scoped
// loggers through context.Context.
//
// Example usage:
//
//	logger := logging.NewFromEnv()
//	slog.SetDefault(logger)
//
//	func handle(ctx context.Context) {
//	    logging.WithRequestID(ctx, logging.FromContext(ctx)).Info("processing request")
//	}
package logging
