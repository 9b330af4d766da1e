package storage

import (
	"errors"

	"phrasecut/internal/types"

	"gorm.io/gorm"
)

var errNoDB = errors.New("database not initialized")

// SaveRun inserts a run together with its tasks.
func SaveRun(run *types.ClipRun) error {
	if DB == nil {
		return errNoDB
	}
	run.Total = len(run.Tasks)
	run.Status = run.DeriveStatus()
	return DB.Create(run).Error
}

// GetRun loads a run with its tasks in index order.
func GetRun(runId string) (*types.ClipRun, error) {
	if DB == nil {
		return nil, errNoDB
	}
	var run types.ClipRun
	err := DB.Preload("Tasks", func(db *gorm.DB) *gorm.DB {
		return db.Order("task_index asc")
	}).Where("run_id = ?", runId).First(&run).Error
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// ListRuns returns the latest runs without their tasks.
func ListRuns(limit int) ([]types.ClipRun, error) {
	if DB == nil {
		return nil, errNoDB
	}
	var runs []types.ClipRun
	if err := DB.Order("created_at desc, id desc").Limit(limit).Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}

func DeleteRun(runId string) error {
	if DB == nil {
		return errNoDB
	}
	return DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("run_id = ?", runId).Delete(&types.ClipTaskRecord{}).Error; err != nil {
			return err
		}
		return tx.Where("run_id = ?", runId).Delete(&types.ClipRun{}).Error
	})
}

// UpdateTaskStatus records a task's new status and refreshes the run
// counters.
func UpdateTaskStatus(runId string, index int, status, failReason string) error {
	if DB == nil {
		return errNoDB
	}
	return DB.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&types.ClipTaskRecord{}).
			Where("run_id = ? AND task_index = ?", runId, index).
			Updates(map[string]interface{}{
				"status":      status,
				"fail_reason": failReason,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return recount(tx, runId)
	})
}

// FailedTasks returns the tasks of a run that did not succeed, in index
// order.
func FailedTasks(runId string) ([]types.ClipTaskRecord, error) {
	if DB == nil {
		return nil, errNoDB
	}
	var tasks []types.ClipTaskRecord
	err := DB.Where("run_id = ? AND status IN ?", runId,
		[]string{types.ClipTaskStatusFailed, types.ClipTaskStatusCanceled}).
		Order("task_index asc").Find(&tasks).Error
	return tasks, err
}

// RequeueTasks puts the given tasks back to queued and counts the attempt.
func RequeueTasks(runId string, indices []int) error {
	if DB == nil {
		return errNoDB
	}
	if len(indices) == 0 {
		return nil
	}
	return DB.Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&types.ClipTaskRecord{}).
			Where("run_id = ? AND task_index IN ?", runId, indices).
			Updates(map[string]interface{}{
				"status":      types.ClipTaskStatusQueued,
				"fail_reason": "",
				"attempts":    gorm.Expr("attempts + 1"),
			}).Error
		if err != nil {
			return err
		}
		return recount(tx, runId)
	})
}

// MarkStaleTasks fails every task left queued or running by a previous
// process. Call on startup before accepting work.
func MarkStaleTasks() (int64, error) {
	if DB == nil {
		return 0, errNoDB
	}
	var affected int64
	err := DB.Transaction(func(tx *gorm.DB) error {
		var runIds []string
		err := tx.Model(&types.ClipTaskRecord{}).
			Where("status IN ?", []string{types.ClipTaskStatusQueued, types.ClipTaskStatusRunning}).
			Distinct().Pluck("run_id", &runIds).Error
		if err != nil {
			return err
		}

		result := tx.Model(&types.ClipTaskRecord{}).
			Where("status IN ?", []string{types.ClipTaskStatusQueued, types.ClipTaskStatusRunning}).
			Updates(map[string]interface{}{
				"status":      types.ClipTaskStatusFailed,
				"fail_reason": "interrupted by restart",
			})
		if result.Error != nil {
			return result.Error
		}
		affected = result.RowsAffected

		for _, runId := range runIds {
			if err = recount(tx, runId); err != nil {
				return err
			}
		}
		return nil
	})
	return affected, err
}

func recount(tx *gorm.DB, runId string) error {
	var run types.ClipRun
	if err := tx.Where("run_id = ?", runId).First(&run).Error; err != nil {
		return err
	}

	var counts []struct {
		Status string
		N      int
	}
	err := tx.Model(&types.ClipTaskRecord{}).
		Select("status, count(*) as n").
		Where("run_id = ?", runId).
		Group("status").Scan(&counts).Error
	if err != nil {
		return err
	}

	run.Succeeded, run.Failed = 0, 0
	for _, c := range counts {
		switch c.Status {
		case types.ClipTaskStatusSucceeded:
			run.Succeeded += c.N
		case types.ClipTaskStatusFailed, types.ClipTaskStatusCanceled:
			run.Failed += c.N
		}
	}
	return tx.Model(&types.ClipRun{}).Where("run_id = ?", runId).Updates(map[string]interface{}{
		"succeeded": run.Succeeded,
		"failed":    run.Failed,
		"status":    run.DeriveStatus(),
	}).Error
}
