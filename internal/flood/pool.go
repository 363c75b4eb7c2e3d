// 本文件用于告警副作用的异步派发工作池
// 存储 通知 音频等外部 IO 不反馈回状态机 也不阻塞下一个采样周期
package flood

import (
	"sync"

	"flood-watch/internal/logger"
)

type dispatchTask struct {
	name string
	run  func() error
}

// dispatchPool 告警派发工作池结构
type dispatchPool struct {
	taskQueue chan dispatchTask
	workers   int
	wg        sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// newDispatchPool 创建告警派发工作池
func newDispatchPool(workers, queueSize int) *dispatchPool {
	if workers <= 0 {
		workers = 2 // 默认2个工作协程
	}
	if queueSize <= 0 {
		queueSize = 32
	}

	pool := &dispatchPool{
		taskQueue: make(chan dispatchTask, queueSize),
		workers:   workers,
	}

	for i := 0; i < workers; i++ {
		pool.wg.Add(1)
		go pool.worker(i)
	}

	logger.Info("告警派发工作池已启动，工作协程数: %d, 队列大小: %d", workers, queueSize)
	return pool
}

// worker 工作协程函数 队列关闭后先取完在途任务再退出
func (p *dispatchPool) worker(id int) {
	defer p.wg.Done()

	for task := range p.taskQueue {
		if err := task.run(); err != nil {
			logger.Error("派发任务 %s 失败: %v", task.name, err)
		}
	}
	logger.Debug("派发工作协程 %d 已停止", id)
}

// Submit 提交派发任务 队列满或池已关闭时降级为同步执行 保证副作用不丢失
func (p *dispatchPool) Submit(name string, run func() error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		p.runSync(name, run)
		return
	}
	select {
	case p.taskQueue <- dispatchTask{name: name, run: run}:
		p.mu.Unlock()
	default:
		p.mu.Unlock()
		logger.Warn("派发队列已满，任务 %s 改为同步执行", name)
		p.runSync(name, run)
	}
}

func (p *dispatchPool) runSync(name string, run func() error) {
	if err := run(); err != nil {
		logger.Error("派发任务 %s 失败: %v", name, err)
	}
}

// Shutdown 关闭队列并等待全部在途任务执行完毕
func (p *dispatchPool) Shutdown() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.taskQueue)
	p.mu.Unlock()
	p.wg.Wait()
}
