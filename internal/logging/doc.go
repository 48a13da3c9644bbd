// Package logging provides structured logging for claimd with OpenTelemetry
// correlation.
//
// The Logger wraps Zap and adds:
//   - a Trace level below Debug
//   - stdout and OpenTelemetry outputs, alone or together
//   - request and evaluation IDs lifted from the context
//   - redaction of credentials and patient fields
//   - per-level sampling where errors are never dropped
//
// # Usage
//
//	logger, err := logging.NewLogger(logging.NewDefaultConfig(), nil)
//	if err != nil {
//	    return err
//	}
//	defer logger.Sync()
//
//	ctx = logging.WithRequestID(ctx, requestID)
//	logger.Info(ctx, "claim evaluated", zap.String("decision", "APPROVED"))
//
// # Patient data
//
// Claims carry patient data. The default redaction list masks the profile
// fields (age, pre_existing_conditions, enrollment_date, application_date)
// whenever they are logged by key. Prefer logging counts and verdicts.
//
// # Testing
//
//	tl := logging.NewTestLogger()
//	svc := evaluation.NewService(engine, evaluation.WithLogger(tl.Logger))
//	...
//	tl.AssertLogged(t, zapcore.InfoLevel, "claim evaluated")
//	tl.AssertNoPatientData(t)
package logging
