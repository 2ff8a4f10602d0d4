package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ReadTune/model"

	"github.com/go-redis/redis/v8"
)

// 歌单投影缓存过期时间
const playlistTTL = 24 * time.Hour

// GetJourneyPlaylistKey 根据旅程ID生成歌单投影的Redis键
func GetJourneyPlaylistKey(journeyID string) string {
	return fmt.Sprintf("journey:%s:playlist", journeyID)
}

// StoreJourneyPlaylist 整体写入旅程歌单投影
// 投影总是整体重建，写入前先清空旧值
func StoreJourneyPlaylist(ctx context.Context, journeyID string, playlist []model.PlaylistTrack) error {
	if RedisClient == nil {
		return fmt.Errorf("Redis client not initialized")
	}

	key := GetJourneyPlaylistKey(journeyID)

	if err := RedisClient.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to clear playlist projection: %w", err)
	}

	if len(playlist) == 0 {
		return nil
	}

	// 使用有序集合存储，分数为曲目位置
	members := make([]*redis.Z, 0, len(playlist))
	for _, track := range playlist {
		trackJSON, err := json.Marshal(track)
		if err != nil {
			return fmt.Errorf("failed to marshal playlist track: %w", err)
		}
		members = append(members, &redis.Z{
			Score:  float64(track.Position),
			Member: trackJSON,
		})
	}

	if err := RedisClient.ZAdd(ctx, key, members...).Err(); err != nil {
		return fmt.Errorf("failed to store playlist projection: %w", err)
	}

	if err := RedisClient.Expire(ctx, key, playlistTTL).Err(); err != nil {
		return fmt.Errorf("failed to set playlist expiration: %w", err)
	}

	return nil
}

// GetJourneyPlaylist 读取旅程歌单投影
// 缓存未命中时返回 (nil, false, nil)，由调用方整体重建
func GetJourneyPlaylist(ctx context.Context, journeyID string) ([]model.PlaylistTrack, bool, error) {
	if RedisClient == nil {
		return nil, false, fmt.Errorf("Redis client not initialized")
	}

	key := GetJourneyPlaylistKey(journeyID)

	result, err := RedisClient.ZRangeByScore(ctx, key, &redis.ZRangeBy{
		Min: "-inf",
		Max: "+inf",
	}).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get playlist projection: %w", err)
	}

	if len(result) == 0 {
		return nil, false, nil
	}

	playlist := make([]model.PlaylistTrack, 0, len(result))
	for _, trackJSON := range result {
		var track model.PlaylistTrack
		if err := json.Unmarshal([]byte(trackJSON), &track); err != nil {
			return nil, false, fmt.Errorf("failed to unmarshal playlist track: %w", err)
		}
		playlist = append(playlist, track)
	}

	return playlist, true, nil
}

// InvalidateJourneyPlaylist 删除旅程歌单投影缓存
func InvalidateJourneyPlaylist(ctx context.Context, journeyID string) error {
	if RedisClient == nil {
		return fmt.Errorf("Redis client not initialized")
	}

	if err := RedisClient.Del(ctx, GetJourneyPlaylistKey(journeyID)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate playlist projection: %w", err)
	}
	return nil
}
