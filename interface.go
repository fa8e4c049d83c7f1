package logpp

// Trace logs a message at trace level
func (l *Logger) Trace(msg string, fields ...Field) {
	l.log(LevelTrace, msg, fields, -1)
}

// Debug logs a message at debug level
func (l *Logger) Debug(msg string, fields ...Field) {
	l.log(LevelDebug, msg, fields, -1)
}

// Info logs a message at info level
func (l *Logger) Info(msg string, fields ...Field) {
	l.log(LevelInfo, msg, fields, -1)
}

// Warn logs a message at warn level
func (l *Logger) Warn(msg string, fields ...Field) {
	l.log(LevelWarn, msg, fields, -1)
}

// Error logs a message at error level
func (l *Logger) Error(msg string, fields ...Field) {
	l.log(LevelError, msg, fields, -1)
}

// Critical logs a message at critical level. It does not exit the process.
func (l *Logger) Critical(msg string, fields ...Field) {
	l.log(LevelCritical, msg, fields, -1)
}

// Tracef logs a "{}" template at trace level
func (l *Logger) Tracef(template string, args ...any) {
	l.logf(LevelTrace, template, args)
}

// Debugf logs a "{}" template at debug level
func (l *Logger) Debugf(template string, args ...any) {
	l.logf(LevelDebug, template, args)
}

// Infof logs a "{}" template at info level
func (l *Logger) Infof(template string, args ...any) {
	l.logf(LevelInfo, template, args)
}

// Warnf logs a "{}" template at warn level
func (l *Logger) Warnf(template string, args ...any) {
	l.logf(LevelWarn, template, args)
}

// Errorf logs a "{}" template at error level
func (l *Logger) Errorf(template string, args ...any) {
	l.logf(LevelError, template, args)
}

// Criticalf logs a "{}" template at critical level
func (l *Logger) Criticalf(template string, args ...any) {
	l.logf(LevelCritical, template, args)
}

// Log renders template with args and logs it at level
func (l *Logger) Log(level Level, template string, args ...any) {
	l.logf(level, template, args)
}

// LogFields logs a ready message with fields at level
func (l *Logger) LogFields(level Level, msg string, fields ...Field) {
	l.log(level, msg, fields, -1)
}

// DebugTrace logs at debug level with the innermost depth call frames
// attached as a "trace" field, overriding trace_depth for this call
func (l *Logger) DebugTrace(depth int, msg string, fields ...Field) {
	l.log(LevelDebug, msg, fields, clampTraceDepth(depth))
}

// InfoTrace logs at info level with a "trace" field of depth frames
func (l *Logger) InfoTrace(depth int, msg string, fields ...Field) {
	l.log(LevelInfo, msg, fields, clampTraceDepth(depth))
}

// WarnTrace logs at warn level with a "trace" field of depth frames
func (l *Logger) WarnTrace(depth int, msg string, fields ...Field) {
	l.log(LevelWarn, msg, fields, clampTraceDepth(depth))
}

// ErrorTrace logs at error level with a "trace" field of depth frames
func (l *Logger) ErrorTrace(depth int, msg string, fields ...Field) {
	l.log(LevelError, msg, fields, clampTraceDepth(depth))
}
