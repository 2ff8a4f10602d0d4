package generation

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"ReadTune/logger"
	"ReadTune/model"
	"ReadTune/repository"
	"ReadTune/storage"

	"github.com/fsnotify/fsnotify"
)

// 写入落盘后的静置时间，避免读到未写完的文件
const settleDelay = 500 * time.Millisecond

// Watcher 监听生成器落盘目录
// 生成器写入 {trackID}.mp3 表示完成，{trackID}.failed 表示失败
// 完成的文件上传到 MinIO 后将曲目置为 completed
type Watcher struct {
	dir       string
	trackRepo repository.TrackRepository

	mu         sync.Mutex
	inProgress map[string]struct{}

	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewWatcher 创建落盘监听器
func NewWatcher(dir string, trackRepo repository.TrackRepository) *Watcher {
	return &Watcher{
		dir:        dir,
		trackRepo:  trackRepo,
		inProgress: make(map[string]struct{}),
		stopChan:   make(chan struct{}),
	}
}

// Start 启动监听
func (w *Watcher) Start() error {
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return err
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	if err := fsWatcher.Add(w.dir); err != nil {
		fsWatcher.Close()
		return err
	}

	logger.Info("生成器落盘监听启动", logger.String("dir", w.dir))

	w.wg.Add(1)
	go w.run(fsWatcher)
	return nil
}

// Stop 停止监听
func (w *Watcher) Stop() {
	close(w.stopChan)
	w.wg.Wait()
	logger.Info("生成器落盘监听已停止")
}

func (w *Watcher) run(fsWatcher *fsnotify.Watcher) {
	defer w.wg.Done()
	defer fsWatcher.Close()

	for {
		select {
		case <-w.stopChan:
			return
		case event, ok := <-fsWatcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			w.handleFile(event.Name)
		case err, ok := <-fsWatcher.Errors:
			if !ok {
				return
			}
			logger.Warn("落盘监听错误", logger.ErrorField(err))
		}
	}
}

func (w *Watcher) handleFile(path string) {
	name := filepath.Base(path)

	switch {
	case strings.HasSuffix(name, ".mp3"):
		trackID := strings.TrimSuffix(name, ".mp3")
		if !w.begin(trackID) {
			return
		}
		go func() {
			defer w.end(trackID)
			w.promoteCompleted(trackID, path)
		}()
	case strings.HasSuffix(name, ".failed"):
		trackID := strings.TrimSuffix(name, ".failed")
		if !w.begin(trackID) {
			return
		}
		go func() {
			defer w.end(trackID)
			w.markFailed(trackID)
		}()
	}
}

// begin 登记曲目开始处理
// 同一文件的 Create 和 Write 事件各来一次，处理中的曲目直接跳过
func (w *Watcher) begin(trackID string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.inProgress[trackID]; ok {
		return false
	}
	w.inProgress[trackID] = struct{}{}
	return true
}

func (w *Watcher) end(trackID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.inProgress, trackID)
}

// promoteCompleted 上传完成的音频并推进曲目状态
func (w *Watcher) promoteCompleted(trackID, path string) {
	// 等文件写完
	time.Sleep(settleDelay)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	track, err := w.trackRepo.GetTrackByID(trackID)
	if err != nil || track == nil {
		logger.Warn("落盘文件没有对应曲目",
			logger.String("trackId", trackID),
			logger.ErrorField(err))
		return
	}
	if track.IsTerminal() {
		// 终态不再变更
		return
	}

	file, err := os.Open(path)
	if err != nil {
		logger.Warn("打开落盘文件失败",
			logger.String("trackId", trackID),
			logger.ErrorField(err))
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil || info.Size() == 0 {
		logger.Warn("落盘文件为空", logger.String("trackId", trackID))
		return
	}

	objectName := "tracks/" + trackID + ".mp3"
	fileURL, err := storage.UploadAudio(ctx, objectName, file, info.Size())
	if err != nil {
		logger.Warn("上传生成音频失败",
			logger.String("trackId", trackID),
			logger.ErrorField(err))
		return
	}

	if err := w.trackRepo.UpdateTrackStatus(trackID, model.TrackStatusCompleted, fileURL); err != nil {
		logger.Error("更新曲目状态失败",
			logger.String("trackId", trackID),
			logger.ErrorField(err))
		return
	}

	os.Remove(path)

	logger.Info("曲目生成完成",
		logger.String("trackId", trackID),
		logger.String("fileUrl", fileURL))
}

// markFailed 根据失败标记推进曲目状态
func (w *Watcher) markFailed(trackID string) {
	track, err := w.trackRepo.GetTrackByID(trackID)
	if err != nil || track == nil || track.IsTerminal() {
		return
	}

	if err := w.trackRepo.UpdateTrackStatus(trackID, model.TrackStatusFailed, ""); err != nil {
		logger.Error("标记曲目失败状态出错",
			logger.String("trackId", trackID),
			logger.ErrorField(err))
		return
	}

	logger.Warn("曲目生成失败", logger.String("trackId", trackID))
}
