package jetstream

import (
	"time"

	"github.com/nats-io/nats.go"
)

const (
	DefaultStreamName    = "LEADS"
	DefaultSubjectPrefix = "v1.leads"

	leadStreamMaxAge     = 7 * 24 * time.Hour
	leadStreamDuplicates = 2 * time.Minute
)

// LeadStreamConfig describes the stream that captures every lead event subject under prefix.
func LeadStreamConfig(name, subjectPrefix string) *nats.StreamConfig {
	if name == "" {
		name = DefaultStreamName
	}
	if subjectPrefix == "" {
		subjectPrefix = DefaultSubjectPrefix
	}
	return &nats.StreamConfig{
		Name:       name,
		Subjects:   []string{subjectPrefix + ".>"},
		Retention:  nats.LimitsPolicy,
		Storage:    nats.FileStorage,
		MaxAge:     leadStreamMaxAge,
		Duplicates: leadStreamDuplicates,
	}
}

// streamConfigEqual compares the properties SetupStream manages.
func streamConfigEqual(a, b nats.StreamConfig) bool {
	isCfgSame := a.Name == b.Name &&
		a.Retention == b.Retention &&
		a.MaxMsgs == b.MaxMsgs &&
		a.MaxAge == b.MaxAge &&
		a.Storage == b.Storage &&
		a.Duplicates == b.Duplicates

	isSubjectsSame := func() bool {
		if len(a.Subjects) != len(b.Subjects) {
			return false
		}
		for i, subject := range a.Subjects {
			if subject != b.Subjects[i] {
				return false
			}
		}
		return true
	}

	return isCfgSame && isSubjectsSame()
}
