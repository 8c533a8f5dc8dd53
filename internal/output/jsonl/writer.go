// Package jsonl 实现异步 JSONL 文件写入，是签名订单交给执行方的出口。
// 每行一个 Record：uuid、类型、时间戳与数据；编码与文件 I/O 在后台 goroutine 完成。
package jsonl

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

type opType int

const (
	opWrite opType = iota
	opFlush
	opClose
)

type op struct {
	typ  opType
	rec  Record
	done chan error
}

// Record 一行 JSONL 记录
type Record struct {
	// ID 记录 ID（uuid v4），执行方用于去重
	ID string `json:"id"`
	// Kind 记录类型，如 evaluation、order
	Kind string `json:"kind"`
	// TS 写入时间
	TS time.Time `json:"ts"`
	// Data 记录内容
	Data any `json:"data"`
}

// Writer 异步 JSONL 写入器
// Write 只负责投递，实际 JSON 编码与文件 I/O 在后台 goroutine 完成。
type Writer struct {
	// path 输出文件路径
	path string
	// kind 记录类型
	kind string
	// ch 操作通道
	ch chan op
	// now 时钟
	now func() time.Time
	// failed 编码或写入失败的记录数
	failed int64

	closeOnce sync.Once
	closeErr  error
	closed    int32

	sendMu sync.Mutex

	wg sync.WaitGroup
}

// NewWriter 创建 JSONL 写入器
// 参数 path: 输出文件路径
// 参数 kind: 记录类型
// 参数 bufferSize: 写入缓冲区大小（channel capacity）
func NewWriter(path, kind string, bufferSize int) (*Writer, error) {
	if bufferSize <= 0 {
		bufferSize = 1000
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("创建输出目录失败: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("打开输出文件失败: %w", err)
	}

	w := &Writer{
		path: path,
		kind: kind,
		ch:   make(chan op, bufferSize),
		now:  time.Now,
	}

	w.wg.Add(1)
	go w.loop(f)

	return w, nil
}

// Write 异步写入一条 JSONL 记录
// 返回: 记录 ID
func (w *Writer) Write(v any) (string, error) {
	if w == nil {
		return "", fmt.Errorf("writer 为空")
	}
	rec := Record{ID: uuid.NewString(), Kind: w.kind, TS: w.now().UTC(), Data: v}
	if atomic.LoadInt32(&w.closed) == 1 {
		return "", fmt.Errorf("writer 已关闭")
	}
	w.sendMu.Lock()
	defer w.sendMu.Unlock()
	if atomic.LoadInt32(&w.closed) == 1 {
		return "", fmt.Errorf("writer 已关闭")
	}
	w.ch <- op{typ: opWrite, rec: rec}
	return rec.ID, nil
}

// Path 输出文件路径
func (w *Writer) Path() string {
	return w.path
}

// Failed 编码或写入失败的记录数
func (w *Writer) Failed() int64 {
	return atomic.LoadInt64(&w.failed)
}

// Flush 强制 flush 文件缓冲区
func (w *Writer) Flush() error {
	if w == nil {
		return nil
	}
	if atomic.LoadInt32(&w.closed) == 1 {
		return nil
	}
	w.sendMu.Lock()
	defer w.sendMu.Unlock()
	if atomic.LoadInt32(&w.closed) == 1 {
		return nil
	}
	done := make(chan error, 1)
	w.ch <- op{typ: opFlush, done: done}
	return <-done
}

// Close 关闭写入器（会先 flush）
func (w *Writer) Close() error {
	if w == nil {
		return nil
	}
	w.closeOnce.Do(func() {
		atomic.StoreInt32(&w.closed, 1)
		w.sendMu.Lock()
		defer w.sendMu.Unlock()
		done := make(chan error, 1)
		w.ch <- op{typ: opClose, done: done}
		w.closeErr = <-done
		close(w.ch)
	})
	w.wg.Wait()
	return w.closeErr
}

func (w *Writer) loop(f *os.File) {
	defer w.wg.Done()
	defer f.Close()

	bw := bufio.NewWriterSize(f, 1<<20) // 1MB buffer
	encErr := func(err error, done chan error) {
		if done != nil {
			done <- err
		}
	}

	for req := range w.ch {
		switch req.typ {
		case opWrite:
			b, err := json.Marshal(req.rec)
			if err != nil {
				atomic.AddInt64(&w.failed, 1)
				continue
			}
			b = append(b, '\n')
			if _, err := bw.Write(b); err != nil {
				atomic.AddInt64(&w.failed, 1)
				continue
			}
		case opFlush:
			encErr(bw.Flush(), req.done)
		case opClose:
			err := bw.Flush()
			encErr(err, req.done)
			return
		}
	}
}
