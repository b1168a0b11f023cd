package logging

import (
	"io"
	"log/syslog"

	"github.com/degentalk/dgt-ledger/utils"
	"github.com/sirupsen/logrus"
	logrusSyslog "github.com/sirupsen/logrus/hooks/syslog"
)

// Field keys shared by every ledger component.
const (
	FieldOp       = "op"
	FieldWalletID = "wallet_id"
	FieldAmount   = "amount"
	FieldTxType   = "tx_type"
	FieldUserID   = "user_id"
)

type Logger struct {
	*logrus.Logger
}

// NewLogger builds the JSON logger from config. The Papertrail hook is only
// attached when an address is configured; failing to reach it is logged and
// otherwise ignored.
func NewLogger(c *utils.Config) *Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{PrettyPrint: c.Env == utils.EnvDevelopment})

	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
		log.WithError(err).Warn("unknown LOG_LEVEL, falling back to info")
	}
	log.SetLevel(level)

	if c.Papertrail != "" {
		hook, err := logrusSyslog.NewSyslogHook("udp", c.Papertrail, syslog.LOG_INFO, c.PapertrailAppName)
		if err != nil {
			log.Error("Unable to connect to Papertrail")
		} else {
			log.Hooks.Add(hook)
		}
	}

	return &Logger{
		log,
	}
}

// NewDiscardLogger is for callers that have no logger to hand.
func NewDiscardLogger() *Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return &Logger{log}
}

// Op starts an entry tagged with the operation name.
func (l *Logger) Op(op string) *logrus.Entry {
	return l.WithField(FieldOp, op)
}
