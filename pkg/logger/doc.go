// Package logger builds *slog.Logger instances from functional options and
// injects request-scoped values from context.Context into every record.
//
// New picks a text or JSON handler, attaches static attributes and, when
// extractors are registered, wraps the handler so each ContextExtractor runs
// on every record. The helpers in attr.go keep attribute keys
// consistent across services (account_id, event_id, gallery_id and so on).
//
//	log := logger.New(
//	    logger.WithEnvironment(cfg.AppEnv, "photovault"),
//	    logger.WithLevelName(cfg.LogLevel),
//	    logger.WithContextExtractors(requestid.LogExtractor()),
//	)
//	log.InfoContext(ctx, "commission recorded",
//	    logger.AccountID(accountID),
//	    logger.AmountCents(share),
//	)
//
// Error and Errors return an empty attribute for nil errors, so they can be
// passed unconditionally.
package logger
