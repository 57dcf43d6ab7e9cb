package playback

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/foxseedlab/ongaku/internal/audio"
	"github.com/foxseedlab/ongaku/internal/discord"
	"github.com/foxseedlab/ongaku/internal/music"
)

type sentMessage struct {
	channelID string
	content   string
}

type mockDiscordClient struct {
	mu                   sync.Mutex
	sendCalls            []sentMessage
	editCalls            []string
	deleteCalls          []string
	timeline             []string
	joinCalls            int
	joinErr              error
	conns                []*mockVoiceConnection
	userVoiceChannelByID map[string]string
	voiceLookupErr       error
}

func (m *mockDiscordClient) Connect(_ context.Context) error { return nil }
func (m *mockDiscordClient) Close() error                    { return nil }
func (m *mockDiscordClient) JoinVoiceChannel(_ context.Context, _, channelID string) (discord.VoiceConnection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.joinCalls++
	if m.joinErr != nil {
		return nil, m.joinErr
	}
	conn := &mockVoiceConnection{channelID: channelID}
	m.conns = append(m.conns, conn)
	return conn, nil
}
func (m *mockDiscordClient) SendChannelMessage(channelID, content string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sendCalls = append(m.sendCalls, sentMessage{channelID: channelID, content: content})
	m.timeline = append(m.timeline, "send:"+content)
	return fmt.Sprintf("msg-%d", len(m.sendCalls)), nil
}
func (m *mockDiscordClient) EditChannelMessage(_, _ string, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.editCalls = append(m.editCalls, content)
	m.timeline = append(m.timeline, "edit:"+content)
	return nil
}
func (m *mockDiscordClient) DeleteChannelMessageAfter(_, messageID string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteCalls = append(m.deleteCalls, messageID)
}
func (m *mockDiscordClient) RegisterVoiceStateUpdateHandler(_ func(discord.VoiceStateEvent)) {}
func (m *mockDiscordClient) RegisterMessageCommandHandler(_ string, _ func(discord.MessageCommandEvent)) {
}
func (m *mockDiscordClient) GetUserVoiceChannelID(_, userID string) (string, error) {
	if m.voiceLookupErr != nil {
		return "", m.voiceLookupErr
	}
	if m.userVoiceChannelByID == nil {
		return "", nil
	}
	return m.userVoiceChannelByID[userID], nil
}
func (m *mockDiscordClient) GetBotUserID() (string, error)        { return "bot-self", nil }
func (m *mockDiscordClient) UpdateListeningStatus(_ string) error { return nil }
func (m *mockDiscordClient) Run() error                           { return nil }

func (m *mockDiscordClient) messages() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.sendCalls))
	for _, c := range m.sendCalls {
		out = append(out, c.content)
	}
	return out
}

// position returns the index of entry in the send/edit timeline, or -1.
func (m *mockDiscordClient) position(entry string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, e := range m.timeline {
		if e == entry {
			return i
		}
	}
	return -1
}

func (m *mockDiscordClient) countMessages(prefix string) int {
	n := 0
	for _, msg := range m.messages() {
		if strings.HasPrefix(msg, prefix) {
			n++
		}
	}
	return n
}

func (m *mockDiscordClient) lastConn(t *testing.T) *mockVoiceConnection {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.conns) == 0 {
		t.Fatal("expected a voice connection")
	}
	return m.conns[len(m.conns)-1]
}

type mockVoiceConnection struct {
	mu          sync.Mutex
	channelID   string
	played      []audio.Resource
	callbacks   []func(error)
	disconnects int
}

func (m *mockVoiceConnection) ChannelID() string { return m.channelID }

func (m *mockVoiceConnection) Play(res audio.Resource, onDone func(error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.played = append(m.played, res)
	m.callbacks = append(m.callbacks, onDone)
}

func (m *mockVoiceConnection) Disconnect() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.disconnects++
	return nil
}

// finish reports the end of the most recent Play call.
func (m *mockVoiceConnection) finish(t *testing.T, err error) {
	t.Helper()
	m.finishAt(t, -1, err)
}

func (m *mockVoiceConnection) finishAt(t *testing.T, index int, err error) {
	t.Helper()
	m.mu.Lock()
	if len(m.callbacks) == 0 {
		m.mu.Unlock()
		t.Fatal("expected a bound resource")
	}
	if index < 0 {
		index = len(m.callbacks) - 1
	}
	cb := m.callbacks[index]
	m.mu.Unlock()
	cb(err)
}

func (m *mockVoiceConnection) playCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.played)
}

func (m *mockVoiceConnection) disconnectCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.disconnects
}

type stubResource struct {
	mu       sync.Mutex
	locator  string
	releases int
}

func (r *stubResource) OpusFrame() ([]byte, error) { return nil, io.EOF }

func (r *stubResource) FrameDuration() time.Duration { return 20 * time.Millisecond }

func (r *stubResource) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.releases++
}

func (r *stubResource) released() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.releases > 0
}

type stubOpener struct {
	mu        sync.Mutex
	name      string
	failing   map[string]bool
	failAll   bool
	opens     map[string]int
	resources []*stubResource
}

func newStubOpener(name string) *stubOpener {
	return &stubOpener{name: name, failing: map[string]bool{}, opens: map[string]int{}}
}

func (o *stubOpener) Name() string { return o.name }

func (o *stubOpener) Open(_ context.Context, locator string) (audio.Resource, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.opens[locator]++
	if o.failAll || o.failing[locator] {
		return nil, errors.New(o.name + " cannot open " + locator)
	}
	res := &stubResource{locator: locator}
	o.resources = append(o.resources, res)
	return res, nil
}

func (o *stubOpener) openCount(locator string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.opens[locator]
}

func (o *stubOpener) lastResource(t *testing.T) *stubResource {
	t.Helper()
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.resources) == 0 {
		t.Fatal("expected an opened resource")
	}
	return o.resources[len(o.resources)-1]
}

type fakeTimer struct {
	mu      sync.Mutex
	delay   time.Duration
	fn      func()
	stopped bool
}

func (f *fakeTimer) Stop() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	wasActive := !f.stopped
	f.stopped = true
	return wasActive
}

func (f *fakeTimer) isStopped() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopped
}

// fire runs the callback as the runtime would, even after Stop.
func (f *fakeTimer) fire() {
	f.fn()
}

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, fn func()) timerHandle {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{delay: d, fn: fn}
	c.timers = append(c.timers, t)
	return t
}

func (c *fakeClock) last(t *testing.T) *fakeTimer {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.timers) == 0 {
		t.Fatal("expected a scheduled timer")
	}
	return c.timers[len(c.timers)-1]
}

func (c *fakeClock) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}

func newFakeScheduler(clock *fakeClock) *InactivityScheduler {
	s := NewInactivityScheduler()
	s.now = clock.Now
	s.afterFunc = clock.AfterFunc
	return s
}

const testInactivityDelay = 300000 * time.Millisecond

type controllerFixture struct {
	dc         *mockDiscordClient
	clock      *fakeClock
	inactivity *InactivityScheduler
	queues     *QueueManager
	primary    *stubOpener
	fallback   *stubOpener
	controller *Controller
}

func newControllerFixture() *controllerFixture {
	f := &controllerFixture{
		dc:       &mockDiscordClient{},
		clock:    newFakeClock(),
		primary:  newStubOpener("link"),
		fallback: newStubOpener("pipe"),
	}
	f.inactivity = newFakeScheduler(f.clock)
	f.queues = NewQueueManager(f.inactivity, nil)
	f.controller = NewController(f.dc, f.queues, f.inactivity, audio.Openers{Primary: f.primary, Fallback: f.fallback}, nil, testInactivityDelay)
	return f
}

func (f *controllerFixture) enqueue(t *testing.T, guildID string, track music.Track) EnqueueResult {
	t.Helper()
	res, err := f.controller.Enqueue(context.Background(), EnqueueRequest{
		GuildID:        guildID,
		TextChannelID:  "text-1",
		VoiceChannelID: "vc-1",
		Track:          track,
	})
	if err != nil {
		t.Fatalf("unexpected enqueue error: %v", err)
	}
	return res
}

func (f *controllerFixture) queue(t *testing.T, guildID string) *GuildQueue {
	t.Helper()
	q, ok := f.queues.Get(guildID)
	if !ok {
		t.Fatalf("expected queue for %s", guildID)
	}
	return q
}

func testTrack(name string) music.Track {
	return music.NewTrack(name, "https://example.com/"+name, "user-1")
}

func waitUntil(t *testing.T, timeout time.Duration, cond func() bool, message string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal(message)
}
