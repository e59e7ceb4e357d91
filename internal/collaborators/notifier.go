package collaborators

import (
	"context"

	"go.uber.org/zap"
)

// LogNotifier records completion notices in the service log. Used when
// no mail transport is configured; the pipeline treats notification as
// best-effort either way.
type LogNotifier struct {
	log *zap.SugaredLogger
}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{log: zap.S().Named("notifier")}
}

func (n *LogNotifier) NotifyCompletion(_ context.Context, email, fullName, projectName string, projectID int64) error {
	if fullName == "" {
		fullName = "there"
	}
	n.log.Infof("completion notice for %s <%s>: project %q (%d) is ready", fullName, email, projectName, projectID)
	return nil
}
