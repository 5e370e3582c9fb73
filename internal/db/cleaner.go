package db

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"
)

// StartRewardSweeper periodically deactivates rewards that have no units left,
// including those an author edited down to zero. It stops when ctx is done.
func StartRewardSweeper(
	ctx context.Context,
	db *sql.DB,
	interval time.Duration,
	log *zap.Logger,
) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				res, err := db.ExecContext(ctx, `
                    UPDATE rewards SET active = false
                     WHERE active = true
                       AND quantity = 0
                `)
				if err != nil {
					log.Error("failed to deactivate sold out rewards", zap.Error(err))
					continue
				}
				if rows, _ := res.RowsAffected(); rows > 0 {
					log.Info("deactivated sold out rewards", zap.Int64("rewards", rows))
				}
			}
		}
	}()
}
