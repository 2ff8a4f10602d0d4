package player

import (
	"context"
	"testing"

	"ReadTune/core/journey"
	"ReadTune/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubProvider 内存里的状态源和日志加载器
type stubProvider struct {
	logs []*model.ReadingLog
}

func (p *stubProvider) FetchStatuses(ctx context.Context, journeyID string) ([]model.LogTrackStatus, error) {
	return nil, nil
}

func (p *stubProvider) LoadLogs(ctx context.Context, journeyID string) ([]*model.ReadingLog, error) {
	return p.logs, nil
}

func newHubClient(hub *PlayerHub, session *journey.Session) *Client {
	return &Client{
		Hub:       hub,
		Send:      make(chan []byte, 4),
		Session:   session,
		Scheduler: journey.NewScheduler(session, journey.DefaultSchedulerConfig()),
	}
}

func TestTeardownWhileEventsInFlight(t *testing.T) {
	registry := journey.NewRegistry()
	hub := NewPlayerHub(registry)
	go hub.Run()
	defer hub.Stop()

	provider := &stubProvider{}

	// 断开时转发协程可能还在排空会话事件缓冲
	// 任何一轮都不能出现向已关闭通道发送的崩溃
	for i := 0; i < 500; i++ {
		session := journey.NewSession("j1", provider, provider)
		for n := 0; n < 16; n++ {
			session.Notify("缓冲事件")
		}

		client := newHubClient(hub, session)
		hub.Register(client)
		hub.Unregister(client)

		// 出站通道最终被关闭，排空正常结束
		for range client.Send {
		}
	}
}

func TestSendAfterTeardownIsDropped(t *testing.T) {
	registry := journey.NewRegistry()
	hub := NewPlayerHub(registry)
	go hub.Run()
	defer hub.Stop()

	session := journey.NewSession("j1", &stubProvider{}, &stubProvider{})
	client := newHubClient(hub, session)
	hub.Register(client)
	hub.Unregister(client)

	for range client.Send {
	}

	// 通道已关闭，迟到的发送被静默丢弃
	client.trySend([]byte("late"))
}

func TestPingGetsPong(t *testing.T) {
	session := journey.NewSession("j1", &stubProvider{}, &stubProvider{})
	defer session.Close()

	client := &Client{Send: make(chan []byte, 1), Session: session}
	client.handleMessage(&WSMessage{Type: MsgTypePing})

	select {
	case data := <-client.Send:
		assert.Contains(t, string(data), "pong")
	default:
		t.Fatal("expected a pong reply")
	}
}

func TestRefreshCommandLoadsLogs(t *testing.T) {
	provider := &stubProvider{logs: []*model.ReadingLog{
		{ID: "l1", JourneyID: "j1", Version: 1, LogType: model.LogTypeNumbered},
	}}
	session := journey.NewSession("j1", provider, provider)
	defer session.Close()

	client := &Client{Send: make(chan []byte, 4), Session: session}
	client.handleMessage(&WSMessage{Type: MsgTypeRefresh})

	require.Len(t, session.Logs(), 1)
	assert.Equal(t, "l1", session.Logs()[0].ID)
}
