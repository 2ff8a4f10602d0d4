package journey

import "ReadTune/model"

// newestCompleted 返回版本最高的已完成且有音频文件的日志
// 没有可播放曲目时返回 nil
func newestCompleted(logs []*model.ReadingLog) *model.ReadingLog {
	var best *model.ReadingLog
	for _, l := range logs {
		track := l.MusicTrack
		if track == nil || track.Status != model.TrackStatusCompleted || track.FileURL == "" {
			continue
		}
		if best == nil || l.Version >= best.Version {
			best = l
		}
	}
	return best
}
