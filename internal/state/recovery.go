package state

import (
	"fmt"
	"time"
)

// interruptedMessage is stored as the error text of runs closed by MarkInterrupted.
const interruptedMessage = "run did not finish"

// MarkInterrupted closes runs still marked running that started before
// cutoff. Such runs belong to a process that exited without recording an
// outcome. Returns the number of runs updated.
func (db *DB) MarkInterrupted(cutoff time.Time) (int64, error) {
	result, err := db.Exec(`
		UPDATE runs SET status = ?, error = ?, exit_code = 1
		WHERE status = ? AND started_at < ?
	`, string(RunInterrupted), interruptedMessage, string(RunRunning), formatTime(cutoff))
	if err != nil {
		return 0, fmt.Errorf("mark interrupted runs: %w", err)
	}

	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("get rows affected: %w", err)
	}
	return count, nil
}
