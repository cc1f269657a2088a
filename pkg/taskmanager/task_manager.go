package taskmanager

import (
	"context"
	"sync"

	"github.com/taskfleet/deployer-backend/internal/logger"
	"github.com/taskfleet/deployer-backend/pkg/domain/entities"

	"go.uber.org/zap"
)

type TaskManager struct {
	tasks      chan entities.Task
	numWorkers int
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
}

func NewTaskManager(numWorkers int, bufferSize int) *TaskManager {
	ctx, cancel := context.WithCancel(context.Background())
	return &TaskManager{
		tasks:      make(chan entities.Task, bufferSize),
		numWorkers: numWorkers,
		ctx:        ctx,
		cancel:     cancel,
	}
}

func (tm *TaskManager) Start() {
	for i := 0; i < tm.numWorkers; i++ {
		tm.wg.Add(1)
		go func(workerID int) {
			defer tm.wg.Done()
			for {
				select {
				case <-tm.ctx.Done():
					logger.Info("worker exiting", zap.Int("workerId", workerID))
					return
				case task := <-tm.tasks:
					logger.Debug("worker running task", zap.Int("workerId", workerID))
					task()
				}
			}
		}(i)
	}
}

func (tm *TaskManager) AddTask(task entities.Task) {
	tm.tasks <- task
}

// Stop signals the workers and waits for them to exit. The task channel
// stays open so a late AddTask buffers instead of panicking.
func (tm *TaskManager) Stop() {
	tm.cancel()
	tm.wg.Wait()
	logger.Info("all workers stopped")
}
