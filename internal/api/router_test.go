package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"gorm.io/gorm"

	apperrors "github.com/wfunc/darts-engine/internal/errors"
	"github.com/wfunc/darts-engine/internal/lock"
	"github.com/wfunc/darts-engine/internal/models"
	"github.com/wfunc/darts-engine/internal/notify"
	"github.com/wfunc/darts-engine/internal/repository"
	"github.com/wfunc/darts-engine/internal/service"
	"github.com/wfunc/darts-engine/internal/utils"
	ws "github.com/wfunc/darts-engine/internal/websocket"
)

type fakeBoard struct {
	mu     sync.Mutex
	gameID string
}

func (b *fakeBoard) Bind(gameID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.gameID = gameID
}

func (b *fakeBoard) GameID() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.gameID
}

func (b *fakeBoard) Pending() int { return 0 }

type gameBody struct {
	Game struct {
		ID      string `json:"id"`
		Status  string `json:"status"`
		Players []struct {
			PlayerRef    uint `json:"playerRef"`
			CurrentScore int  `json:"currentScore"`
		} `json:"players"`
	} `json:"game"`
	Version int `json:"version"`
	Turn    *struct {
		Throw struct {
			Total  int  `json:"total"`
			IsBust bool `json:"isBust"`
		} `json:"throw"`
	} `json:"turn"`
}

// RouterTestSuite 路由测试套件
type RouterTestSuite struct {
	suite.Suite
	db       *gorm.DB
	router   *Router
	hub      *ws.Hub
	board    *fakeBoard
	recorder *notify.Recorder
	jwt      *utils.JWTManager
	cancel   context.CancelFunc
	owner    string
	stranger string
}

func (suite *RouterTestSuite) SetupTest() {
	suite.db = repository.SetupTestDB()
	repos := repository.NewManager(suite.db)
	suite.recorder = &notify.Recorder{}
	suite.hub = ws.NewHub(ws.Options{}, zap.NewNop())
	suite.board = &fakeBoard{}
	suite.jwt = utils.NewJWTManager("test-secret", "darts-engine", time.Hour)

	var ctx context.Context
	ctx, suite.cancel = context.WithCancel(context.Background())
	go suite.hub.Run(ctx)

	services := service.NewServices(repos, lock.NewLocalLocker(),
		notify.Multi{suite.recorder, suite.hub}, service.DefaultConfig(), zap.NewNop())

	suite.router = NewRouter(Options{
		DB:        suite.db,
		Services:  services,
		Validator: suite.jwt,
		Hub:       suite.hub,
		Board:     suite.board,
		BoardLogs: repos.BoardLog(),
		Mode:      gin.TestMode,
		Log:       zap.NewNop(),
	})

	var err error
	suite.owner, err = suite.jwt.GenerateToken(1, "主人")
	require.NoError(suite.T(), err)
	suite.stranger, err = suite.jwt.GenerateToken(2, "路人")
	require.NoError(suite.T(), err)
}

func (suite *RouterTestSuite) TearDownTest() {
	suite.cancel()
	repository.CleanupTestDB(suite.db)
}

func (suite *RouterTestSuite) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(suite.T(), err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	suite.router.GetEngine().ServeHTTP(w, req)
	return w
}

func (suite *RouterTestSuite) decode(w *httptest.ResponseRecorder, v interface{}) {
	require.NoError(suite.T(), json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func (suite *RouterTestSuite) errorCode(w *httptest.ResponseRecorder) string {
	var resp ErrorResponse
	suite.decode(w, &resp)
	return resp.Code
}

func (suite *RouterTestSuite) createPlayer(token, name string) uint {
	w := suite.do(http.MethodPost, "/api/v1/players", token, gin.H{"name": name})
	require.Equal(suite.T(), http.StatusCreated, w.Code, w.Body.String())
	var p models.Player
	suite.decode(w, &p)
	return p.ID
}

func (suite *RouterTestSuite) createGame(mode string) string {
	a := suite.createPlayer(suite.owner, "阿飞")
	b := suite.createPlayer(suite.owner, "小白")
	w := suite.do(http.MethodPost, "/api/v1/games", suite.owner, gin.H{
		"game_mode":  mode,
		"player_ids": []uint{a, b},
	})
	require.Equal(suite.T(), http.StatusCreated, w.Code, w.Body.String())
	var body gameBody
	suite.decode(w, &body)
	return body.Game.ID
}

// TestHealth 测试健康检查
func (suite *RouterTestSuite) TestHealth() {
	w := suite.do(http.MethodGet, "/health", "", nil)
	assert.Equal(suite.T(), http.StatusOK, w.Code)

	var resp map[string]interface{}
	suite.decode(w, &resp)
	assert.Equal(suite.T(), "healthy", resp["status"])
}

// TestAuthRequired 测试认证
func (suite *RouterTestSuite) TestAuthRequired() {
	w := suite.do(http.MethodGet, "/api/v1/games", "", nil)
	assert.Equal(suite.T(), http.StatusUnauthorized, w.Code)

	w = suite.do(http.MethodGet, "/api/v1/games", "garbage", nil)
	assert.Equal(suite.T(), http.StatusUnauthorized, w.Code)
}

// TestPlayers 测试选手接口
func (suite *RouterTestSuite) TestPlayers() {
	id := suite.createPlayer(suite.owner, "阿飞")

	w := suite.do(http.MethodGet, fmt.Sprintf("/api/v1/players/%d", id), suite.owner, nil)
	require.Equal(suite.T(), http.StatusOK, w.Code)
	var p models.Player
	suite.decode(w, &p)
	assert.Equal(suite.T(), "阿飞", p.Name)

	w = suite.do(http.MethodGet, "/api/v1/players/abc", suite.owner, nil)
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)

	w = suite.do(http.MethodGet, "/api/v1/players/999", suite.owner, nil)
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)
	assert.Equal(suite.T(), "NOT_FOUND", suite.errorCode(w))

	w = suite.do(http.MethodPost, "/api/v1/players", suite.owner, gin.H{})
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)

	w = suite.do(http.MethodGet, "/api/v1/players", suite.owner, nil)
	require.Equal(suite.T(), http.StatusOK, w.Code)
	var page PageResponse
	suite.decode(w, &page)
	assert.Equal(suite.T(), int64(1), page.Total)

	w = suite.do(http.MethodGet, "/api/v1/leaderboard?mode=aroundTheClock", suite.owner, nil)
	assert.Equal(suite.T(), http.StatusOK, w.Code)
}

// TestGameFlow 测试比赛流程
func (suite *RouterTestSuite) TestGameFlow() {
	id := suite.createGame("501")
	base := "/api/v1/games/" + id

	// 未开始不能投掷
	w := suite.do(http.MethodPost, base+"/throws", suite.owner, gin.H{"segments": []string{"T20", "T20", "T20"}})
	assert.Equal(suite.T(), http.StatusConflict, w.Code)
	assert.Equal(suite.T(), "INVALID_STATE", suite.errorCode(w))

	w = suite.do(http.MethodPost, base+"/start", suite.owner, nil)
	require.Equal(suite.T(), http.StatusOK, w.Code)

	w = suite.do(http.MethodPost, base+"/throws", suite.owner, gin.H{"segments": []string{"T20", "T20", "T20"}})
	require.Equal(suite.T(), http.StatusOK, w.Code, w.Body.String())
	var body gameBody
	suite.decode(w, &body)
	require.NotNil(suite.T(), body.Turn)
	assert.Equal(suite.T(), 180, body.Turn.Throw.Total)
	assert.Equal(suite.T(), 321, body.Game.Players[0].CurrentScore)

	// 结构化三镖
	w = suite.do(http.MethodPost, base+"/throws", suite.owner, gin.H{
		"dart1": gin.H{"value": 25, "multiplier": 2},
		"dart2": gin.H{"value": 0, "multiplier": 1},
		"dart3": gin.H{"value": 1, "multiplier": 1},
	})
	require.Equal(suite.T(), http.StatusOK, w.Code, w.Body.String())
	suite.decode(w, &body)
	assert.Equal(suite.T(), 450, body.Game.Players[1].CurrentScore)

	w = suite.do(http.MethodPost, base+"/throws", suite.owner, gin.H{"segments": []string{"T20", "X5", "MISS"}})
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
	assert.Equal(suite.T(), "INVALID_REQUEST", suite.errorCode(w))

	w = suite.do(http.MethodPost, base+"/throws", suite.owner, gin.H{"segments": []string{"T20", "NEXT", "MISS"}})
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)

	w = suite.do(http.MethodPost, base+"/throws", suite.owner, gin.H{"segments": []string{"T20"}})
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)

	w = suite.do(http.MethodPost, base+"/pause", suite.owner, nil)
	require.Equal(suite.T(), http.StatusOK, w.Code)
	w = suite.do(http.MethodPost, base+"/resume", suite.owner, nil)
	require.Equal(suite.T(), http.StatusOK, w.Code)
	w = suite.do(http.MethodPost, base+"/abandon", suite.owner, nil)
	require.Equal(suite.T(), http.StatusOK, w.Code)
	suite.decode(w, &body)
	assert.Equal(suite.T(), "abandoned", body.Game.Status)

	w = suite.do(http.MethodGet, base, suite.owner, nil)
	require.Equal(suite.T(), http.StatusOK, w.Code)
	suite.decode(w, &body)
	assert.Equal(suite.T(), 7, body.Version)

	w = suite.do(http.MethodGet, "/api/v1/games?status=abandoned", suite.owner, nil)
	require.Equal(suite.T(), http.StatusOK, w.Code)
	var page PageResponse
	suite.decode(w, &page)
	assert.Equal(suite.T(), int64(1), page.Total)

	assert.Equal(suite.T(), []notify.EventType{
		notify.EventCreated,
		notify.EventStarted,
		notify.EventThrow,
		notify.EventThrow,
		notify.EventPaused,
		notify.EventResumed,
		notify.EventAbandoned,
	}, suite.recorder.Types())
}

// TestGameOwnership 测试比赛归属
func (suite *RouterTestSuite) TestGameOwnership() {
	id := suite.createGame("cricket")

	w := suite.do(http.MethodGet, "/api/v1/games/"+id, suite.stranger, nil)
	assert.Equal(suite.T(), http.StatusForbidden, w.Code)
	assert.Equal(suite.T(), "FORBIDDEN", suite.errorCode(w))

	w = suite.do(http.MethodPost, "/api/v1/games/"+id+"/start", suite.stranger, nil)
	assert.Equal(suite.T(), http.StatusForbidden, w.Code)

	w = suite.do(http.MethodGet, "/api/v1/games/missing", suite.owner, nil)
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)

	// 不能用别人的选手建比赛
	other := suite.createPlayer(suite.stranger, "路人")
	w = suite.do(http.MethodPost, "/api/v1/games", suite.owner, gin.H{"game_mode": "501", "player_ids": []uint{other}})
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)

	w = suite.do(http.MethodPost, "/api/v1/games", suite.owner, gin.H{"game_mode": "golf", "player_ids": []uint{other}})
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
}

// TestBoard 测试镖盘接口
func (suite *RouterTestSuite) TestBoard() {
	id := suite.createGame("501")

	w := suite.do(http.MethodPost, "/api/v1/board/bind", suite.stranger, gin.H{"game_id": id})
	assert.Equal(suite.T(), http.StatusForbidden, w.Code)
	assert.Empty(suite.T(), suite.board.GameID())

	w = suite.do(http.MethodPost, "/api/v1/board/bind", suite.owner, gin.H{"game_id": id})
	require.Equal(suite.T(), http.StatusOK, w.Code)
	assert.Equal(suite.T(), id, suite.board.GameID())

	w = suite.do(http.MethodGet, "/api/v1/board", suite.owner, nil)
	require.Equal(suite.T(), http.StatusOK, w.Code)
	var status BoardStatus
	suite.decode(w, &status)
	assert.True(suite.T(), status.Enabled)
	assert.Equal(suite.T(), id, status.GameID)

	w = suite.do(http.MethodGet, "/api/v1/board/logs?game_id="+id, suite.owner, nil)
	assert.Equal(suite.T(), http.StatusOK, w.Code)

	// 缺省取绑定的比赛
	w = suite.do(http.MethodGet, "/api/v1/board/logs", suite.owner, nil)
	assert.Equal(suite.T(), http.StatusOK, w.Code)

	w = suite.do(http.MethodGet, "/api/v1/board/logs?game_id="+id, suite.stranger, nil)
	assert.Equal(suite.T(), http.StatusForbidden, w.Code)

	w = suite.do(http.MethodGet, "/api/v1/board/logs", suite.stranger, nil)
	assert.Equal(suite.T(), http.StatusForbidden, w.Code)

	w = suite.do(http.MethodGet, "/api/v1/board/logs?game_id=missing", suite.owner, nil)
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)

	suite.board.Bind("")
	w = suite.do(http.MethodGet, "/api/v1/board/logs", suite.owner, nil)
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
}

// TestNoRoute 测试未知接口
func (suite *RouterTestSuite) TestNoRoute() {
	w := suite.do(http.MethodGet, "/nope", "", nil)
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)
	assert.Equal(suite.T(), "NOT_FOUND", suite.errorCode(w))
}

// TestWebSocket 测试观战推送
func (suite *RouterTestSuite) TestWebSocket() {
	id := suite.createGame("501")
	srv := httptest.NewServer(suite.router.Handler())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/ws/games/" + id + "?token=" + suite.stranger
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(suite.T(), err)
	defer conn.Close()

	read := func() ws.Message {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, data, err := conn.ReadMessage()
		require.NoError(suite.T(), err)
		var msg ws.Message
		require.NoError(suite.T(), jsoniter.Unmarshal(data, &msg))
		return msg
	}

	msg := read()
	assert.Equal(suite.T(), ws.MessageTypeSnapshot, msg.Type)
	assert.Equal(suite.T(), id, msg.GameID)

	require.Eventually(suite.T(), func() bool { return suite.hub.Count(id) == 1 }, 2*time.Second, 10*time.Millisecond)

	w := suite.do(http.MethodPost, "/api/v1/games/"+id+"/start", suite.owner, nil)
	require.Equal(suite.T(), http.StatusOK, w.Code)

	msg = read()
	assert.Equal(suite.T(), ws.MessageTypeEvent, msg.Type)
	assert.Contains(suite.T(), string(msg.Data), string(notify.EventStarted))

	// 比赛不存在时不升级
	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/api/v1/ws/games/missing?token="+suite.owner, nil)
	assert.Error(suite.T(), err)
	require.NotNil(suite.T(), resp)
	assert.Equal(suite.T(), http.StatusNotFound, resp.StatusCode)
}

// TestRespondError 测试错误响应
func TestRespondError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("可重试错误带 Retry-After", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodPost, "/api/v1/games/g-1/throws", nil)
		c.Request.Header.Set("X-Request-ID", "req-1")

		respondError(c, apperrors.New(apperrors.ErrGameLocked))

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "1", w.Header().Get("Retry-After"))
		var resp ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "GAME_LOCKED", resp.Code)
		assert.Equal(t, "req-1", resp.RequestID)
		assert.NotZero(t, resp.Timestamp)
	})

	t.Run("服务端错误隐藏细节", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/games", nil)

		respondError(c, apperrors.Wrap(fmt.Errorf("disk I/O error"), apperrors.ErrDatabaseQuery))

		assert.Equal(t, apperrors.New(apperrors.ErrDatabaseQuery).HTTPStatus(), w.Code)
		assert.Empty(t, w.Header().Get("Retry-After"))
		var resp ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "INTERNAL_ERROR", resp.Code)
		assert.Empty(t, resp.Details)
		assert.Empty(t, resp.RequestID)
	})

	t.Run("未知错误按内部错误处理", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/games", nil)

		respondError(c, fmt.Errorf("boom"))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterTestSuite))
}
