package auth

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"ts-dashboard/internal/gateway"
	"ts-dashboard/internal/model"
	"ts-dashboard/internal/session"
	"ts-dashboard/internal/source"
)

func newStore(t *testing.T) (session.Store, *gorm.DB) {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	gormDB, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, gormDB.AutoMigrate(&model.SessionValue{}))
	t.Cleanup(func() {
		sqlDB, _ := gormDB.DB()
		sqlDB.Close()
	})
	return session.NewGormStore(gormDB), gormDB
}

// newRemote returns a live verifier whose backend answers login with body,
// or fails with status when body is empty.
func newRemote(t *testing.T, status int, body string) (source.Verifier, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, Digest("secret"), r.URL.Query().Get("password"))
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}))
	t.Cleanup(server.Close)

	client, err := gateway.NewClient(server.URL, gateway.NewFetchTransport(gateway.NewHTTPClient(time.Second, "", zap.NewNop())), zap.NewNop())
	require.NoError(t, err)
	return source.NewLive(client, zap.NewNop()), &calls
}

func demo() source.Verifier {
	return source.NewFixture(nil, time.UTC)
}

func TestDigest(t *testing.T) {
	assert.Equal(t, "2bb80d537b1da3e38bd30361aa855686bde0eacd7162fef6a25fe97bf527a25b", Digest("secret"))
	assert.Equal(t, strings.ToLower(Digest("x")), Digest("x"))
	assert.Len(t, Digest(""), 64)
}

func TestLogin_MissingFields(t *testing.T) {
	store, _ := newStore(t)
	a := New(nil, demo(), store, Options{DemoMode: true}, zap.NewNop())

	for _, in := range [][2]string{{"", "x"}, {"IETS", ""}, {"   ", "x"}} {
		_, _, err := a.Login(context.Background(), in[0], in[1])
		assert.ErrorIs(t, err, ErrMissingFields)
		assert.Equal(t, MsgMissingFields, err.Error())
	}
}

func TestLogin_DemoUnknownStationAlwaysFails(t *testing.T) {
	store, db := newStore(t)
	a := New(nil, demo(), store, Options{DemoMode: true}, zap.NewNop())

	for _, code := range []string{"XXTS", "iets", "WKTS2", "管理員", "IETS IWTS"} {
		for i := 0; i < 3; i++ {
			_, token, err := a.Login(context.Background(), code, "x")
			assert.ErrorIs(t, err, ErrInvalidCredentials, code)
			assert.Equal(t, MsgUnknownStation, err.Error())
			assert.Empty(t, token)
		}
	}

	var count int64
	require.NoError(t, db.Model(&model.SessionValue{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestLogin_DemoKnownStations(t *testing.T) {
	store, _ := newStore(t)
	a := New(nil, demo(), store, Options{DemoMode: true}, zap.NewNop())

	for _, code := range []string{"IETS", "IWTS", "NLTS", "NWNNTS", "OITF", "STTS", "WKTS"} {
		for _, password := range []string{"x", "另一個密碼", " "} {
			sess, token, err := a.Login(context.Background(), code, password)
			require.NoError(t, err)
			assert.NotEmpty(t, token)
			assert.Equal(t, code, sess.StationCode)
			assert.Equal(t, code == "WKTS", sess.IsAdmin)
		}
	}
}

func TestLogin_WritesExactlyThreeKeys(t *testing.T) {
	store, db := newStore(t)
	a := New(nil, demo(), store, Options{DemoMode: true}, zap.NewNop())

	sess, token, err := a.Login(context.Background(), "WKTS", "x")
	require.NoError(t, err)

	var rows []model.SessionValue
	require.NoError(t, db.Where("token = ?", token).Find(&rows).Error)
	values := make(map[string]string)
	for _, r := range rows {
		values[r.Key] = r.Value
	}
	assert.Equal(t, map[string]string{
		session.KeyStationCode: "WKTS",
		session.KeyDisplayName: "西九龍轉運站 (管理員)",
		session.KeyIsAdmin:     "true",
	}, values)

	current, ok := a.Current(context.Background(), token)
	require.True(t, ok)
	assert.Equal(t, sess, current)
}

func TestLogin_Remote(t *testing.T) {
	testCases := []struct {
		name        string
		status      int
		body        string
		opts        Options
		code        string
		wantErr     error
		wantMessage string
		wantStation string
		wantAdmin   bool
	}{
		{
			name:        "Remote success",
			status:      http.StatusOK,
			body:        `{"success":true,"user":"STTS","fullName":"沙田轉運站","isAdmin":false}`,
			code:        "STTS",
			wantStation: "STTS",
		},
		{
			name:        "Remote rejection is final",
			status:      http.StatusOK,
			body:        `{"success":false,"error":"密碼錯誤"}`,
			opts:        Options{DemoFallback: true},
			code:        "STTS",
			wantErr:     ErrInvalidCredentials,
			wantMessage: "密碼錯誤",
		},
		{
			name:        "Remote rejection without reason",
			status:      http.StatusOK,
			body:        `{"success":false}`,
			opts:        Options{DemoFallback: true},
			code:        "STTS",
			wantErr:     ErrInvalidCredentials,
			wantMessage: MsgRejected,
		},
		{
			name:        "Unreachable falls back to demo",
			status:      http.StatusBadGateway,
			opts:        Options{DemoFallback: true},
			code:        "WKTS",
			wantStation: "WKTS",
			wantAdmin:   true,
		},
		{
			name:        "Unreachable with unknown code",
			status:      http.StatusServiceUnavailable,
			opts:        Options{DemoFallback: true},
			code:        "ZZTS",
			wantErr:     ErrInvalidCredentials,
			wantMessage: MsgUnknownStation,
		},
		{
			name:    "Unreachable without fallback",
			status:  http.StatusBadGateway,
			code:    "WKTS",
			wantErr: ErrNetwork,
		},
		{
			name:        "Non-JSON answer falls back to demo",
			status:      http.StatusOK,
			body:        `<html>Sign in to continue</html>`,
			opts:        Options{DemoFallback: true},
			code:        "OITF",
			wantStation: "OITF",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			store, _ := newStore(t)
			remote, calls := newRemote(t, tc.status, tc.body)
			a := New(remote, demo(), store, tc.opts, zap.NewNop())

			sess, token, err := a.Login(context.Background(), tc.code, "secret")
			assert.Equal(t, int32(1), calls.Load())
			if tc.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tc.wantErr)
				if tc.wantMessage != "" {
					assert.Equal(t, tc.wantMessage, err.Error())
				}
				assert.Empty(t, token)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantStation, sess.StationCode)
			assert.Equal(t, tc.wantAdmin, sess.IsAdmin)
		})
	}
}

func TestLogin_DemoModeSkipsRemote(t *testing.T) {
	store, _ := newStore(t)
	remote, calls := newRemote(t, http.StatusOK, `{"success":true,"user":"IETS"}`)
	a := New(remote, demo(), store, Options{DemoMode: true}, zap.NewNop())

	_, _, err := a.Login(context.Background(), "IETS", "secret")
	require.NoError(t, err)
	assert.Zero(t, calls.Load())
}

func TestLogout_Idempotent(t *testing.T) {
	store, _ := newStore(t)
	a := New(nil, demo(), store, Options{DemoMode: true}, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, a.Logout(ctx, "never-issued"))
	require.NoError(t, a.Logout(ctx, ""))

	_, token, err := a.Login(ctx, "IETS", "x")
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		require.NoError(t, a.Logout(ctx, token))
		_, ok := a.Current(ctx, token)
		assert.False(t, ok)
	}
}

func TestGuard(t *testing.T) {
	assert.Equal(t, DashboardPath, Guard(ViewLogin, true))
	assert.Equal(t, "", Guard(ViewLogin, false))
	assert.Equal(t, LoginPath, Guard(ViewDashboard, false))
	assert.Equal(t, "", Guard(ViewDashboard, true))
}
