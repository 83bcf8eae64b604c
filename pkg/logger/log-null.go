package logger

// NullLogger - For mocking out in tests
type NullLogger struct {
}

func (l *NullLogger)Printf(level LogLevel, format string, a ...interface{}) {}
func (l *NullLogger)Debugf(format string, a ...interface{})                 {}
func (l *NullLogger)Infof(format string, a ...interface{})                  {}
func (l *NullLogger)Errorf(format string, a ...interface{})                 {}
