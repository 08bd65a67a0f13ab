package writer

import (
	"bytes"
	"context"
	"fmt"

	"github.com/tigerroll/songplays/pkg/batch/adapter/storage"
	"github.com/tigerroll/songplays/pkg/batch/support/util/exception"
	"github.com/tigerroll/songplays/pkg/batch/support/util/logger"
)

// Publisher promotes a staged table to its live location.
type Publisher struct {
	storageConnectionResolver storage.StorageConnectionResolver
}

// PublishResult describes one published table.
type PublishResult struct {
	Location string
	Files    int
}

// NewPublisher creates a new Publisher.
func NewPublisher(storageConnectionResolver storage.StorageConnectionResolver) *Publisher {
	return &Publisher{storageConnectionResolver: storageConnectionResolver}
}

// Publish replaces the contents of live with the contents of staged.
//
// The staged table must carry a success marker. The live prefix is cleared,
// the staged data files are copied, the live marker is written last and the
// staged objects are removed. Readers that wait for the marker never observe a
// mix of two runs.
func (p *Publisher) Publish(ctx context.Context, staged, live storage.Location) (PublishResult, error) {
	result := PublishResult{Location: live.String()}
	staged, live, ok := storage.SharedRoot(staged, live)
	if !ok {
		return result, exception.NewWriteError("publisher",
			fmt.Sprintf("staged table %s and live table %s must be disjoint prefixes of one bucket", staged, live), nil)
	}

	conn, err := p.storageConnectionResolver.ResolveStorageConnection(ctx, live)
	if err != nil {
		return result, exception.NewWriteError("publisher", fmt.Sprintf("failed to resolve storage for %s", live), err)
	}

	complete, err := conn.Exists(ctx, staged.Bucket, staged.Key(SuccessMarker))
	if err != nil {
		return result, exception.NewWriteError("publisher", fmt.Sprintf("failed to check %s", staged), err)
	}
	if !complete {
		return result, exception.NewWriteError("publisher", fmt.Sprintf("staged table %s is incomplete", staged), nil)
	}

	if _, err := storage.DeletePrefix(ctx, conn, live); err != nil {
		return result, exception.NewWriteError("publisher", fmt.Sprintf("failed to clear %s", live), err)
	}
	copied, err := storage.CopyPrefix(ctx, conn, staged, live, func(rel string) bool {
		return rel == SuccessMarker
	})
	if err != nil {
		return result, exception.NewWriteError("publisher", fmt.Sprintf("failed to copy %s to %s", staged, live), err)
	}
	if err := conn.Upload(ctx, live.Bucket, live.Key(SuccessMarker), bytes.NewReader(nil), ""); err != nil {
		return result, exception.NewWriteError("publisher", fmt.Sprintf("failed to write success marker in %s", live), err)
	}
	if _, err := storage.DeletePrefix(ctx, conn, staged); err != nil {
		// The live table is complete at this point; leftover staging is only noise.
		logger.Warnf("Publisher: failed to remove staged table %s: %v", staged, err)
	}

	result.Files = len(copied)
	logger.Infof("Publisher: published %d files from %s to %s.", result.Files, staged, live)
	return result, nil
}

// Discard removes a staged table, e.g. after a failed run.
func (p *Publisher) Discard(ctx context.Context, staged storage.Location) error {
	conn, err := p.storageConnectionResolver.ResolveStorageConnection(ctx, staged)
	if err != nil {
		return exception.NewWriteError("publisher", fmt.Sprintf("failed to resolve storage for %s", staged), err)
	}
	if _, err := storage.DeletePrefix(ctx, conn, staged); err != nil {
		return exception.NewWriteError("publisher", fmt.Sprintf("failed to discard %s", staged), err)
	}
	return nil
}
