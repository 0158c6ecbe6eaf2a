package bot

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"

	"github.com/bwmarrin/discordgo"

	"github.com/seriatw/shenhe-bot/internal/domain/accounts"
	"github.com/seriatw/shenhe-bot/internal/domain/notifications"
)

func TestParseCookie(t *testing.T) {
	cases := []struct {
		name   string
		raw    string
		ltuid  int64
		ltoken string
		ok     bool
	}{
		{
			name:   "plain pair",
			raw:    "ltuid=12345; ltoken=abcDEF",
			ltuid:  12345,
			ltoken: "abcDEF",
			ok:     true,
		},
		{
			name:   "full browser dump with noise",
			raw:    "mi18nLang=en-us; ltuid=98765; account_id=98765; ltoken=vXyZ.123_; DEVICEFP=x",
			ltuid:  98765,
			ltoken: "vXyZ.123_",
			ok:     true,
		},
		{
			name:   "v2 names",
			raw:    "ltuid_v2=555; ltoken_v2=token2",
			ltuid:  555,
			ltoken: "token2",
			ok:     true,
		},
		{
			name: "missing ltoken",
			raw:  "ltuid=12345; account_id=12345",
		},
		{
			name: "empty",
			raw:  "",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ltuid, ltoken, err := parseCookie(tc.raw)
			if tc.ok {
				if err != nil {
					t.Fatalf("parseCookie: %v", err)
				}
				if ltuid != tc.ltuid || ltoken != tc.ltoken {
					t.Fatalf("got %d/%q, want %d/%q", ltuid, ltoken, tc.ltuid, tc.ltoken)
				}
				return
			}
			if err == nil {
				t.Fatalf("want error, got %d/%q", ltuid, ltoken)
			}
		})
	}
}

// fakeAccounts mirrors the repo's row semantics over an in-memory list.
type fakeAccounts struct {
	list []*accounts.Account
}

func (f *fakeAccounts) find(userID string, uid int64) *accounts.Account {
	for _, a := range f.list {
		if a.UserID == userID && a.UID == uid {
			return a
		}
	}
	return nil
}

func (f *fakeAccounts) Upsert(_ context.Context, userID string, uid, ltuid int64, ltoken string) (*accounts.Account, error) {
	if a := f.find(userID, uid); a != nil {
		a.LtUID, a.LtToken, a.CookieInvalid = ltuid, ltoken, false
		return a, nil
	}
	a := &accounts.Account{UserID: userID, UID: uid, LtUID: ltuid, LtToken: ltoken}
	f.list = append(f.list, a)
	return a, nil
}

func (f *fakeAccounts) GetActive(_ context.Context, userID string) (*accounts.Account, error) {
	for _, a := range f.list {
		if a.UserID == userID && a.Active {
			return a, nil
		}
	}
	return nil, accounts.ErrNotFound
}

func (f *fakeAccounts) SetUID(_ context.Context, userID string, uid int64) error {
	for _, a := range f.list {
		if a.UserID == userID && a.Active {
			a.UID = uid
			return nil
		}
	}
	return accounts.ErrNotFound
}

func (f *fakeAccounts) SetActive(_ context.Context, userID string, uid int64) error {
	target := f.find(userID, uid)
	if target == nil {
		return accounts.ErrNotFound
	}
	for _, a := range f.list {
		if a.UserID == userID {
			a.Active = false
		}
	}
	target.Active = true
	return nil
}

func (f *fakeAccounts) SetDailyCheckin(_ context.Context, userID string, uid int64, enabled bool) error {
	a := f.find(userID, uid)
	if a == nil {
		return accounts.ErrNotFound
	}
	a.DailyCheckin = enabled
	return nil
}

func (f *fakeAccounts) MarkCookieInvalid(_ context.Context, userID string, uid int64) error {
	if a := f.find(userID, uid); a != nil {
		a.CookieInvalid = true
	}
	return nil
}

func (f *fakeAccounts) ListAll(_ context.Context) ([]accounts.Account, error) {
	out := make([]accounts.Account, 0, len(f.list))
	for _, a := range f.list {
		out = append(out, *a)
	}
	return out, nil
}

func (f *fakeAccounts) Delete(_ context.Context, userID string, uid int64) error {
	for n, a := range f.list {
		if a.UserID == userID && a.UID == uid {
			f.list = append(f.list[:n], f.list[n+1:]...)
			return nil
		}
	}
	return accounts.ErrNotFound
}

type fakeNotifs struct {
	deletedFor [][2]any // userID, uid pairs
}

func (f *fakeNotifs) EnsureDefaults(_ context.Context, _ string, _ int64) error { return nil }

func (f *fakeNotifs) Get(_ context.Context, _ string, _ int64, _ notifications.Kind) (*notifications.Subscription, error) {
	return nil, notifications.ErrNotFound
}

func (f *fakeNotifs) SetEnabled(_ context.Context, _ string, _ int64, _ notifications.Kind, _ bool) error {
	return nil
}

func (f *fakeNotifs) SetThreshold(_ context.Context, _ string, _ int64, _ notifications.Kind, _, _ int) error {
	return nil
}

func (f *fakeNotifs) DeleteFor(_ context.Context, userID string, uid int64) error {
	f.deletedFor = append(f.deletedFor, [2]any{userID, uid})
	return nil
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

// newTestBot builds a Bot whose Discord REST calls are captured instead
// of hitting the network.
func newTestBot(t *testing.T, accts AccountStore, notifs SubscriptionStore) (*Bot, *[]string) {
	t.Helper()
	b, err := New("test-token", slog.Default(), accts, notifs, nil, "admin", "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	var bodies []string
	b.session.Client = &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		if r.Body != nil {
			raw, _ := io.ReadAll(r.Body)
			bodies = append(bodies, string(raw))
		}
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader("{}")),
			Header:     make(http.Header),
		}, nil
	})}
	return b, &bodies
}

func accountInteraction(sub string, uid int64) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		Type: discordgo.InteractionApplicationCommand,
		User: &discordgo.User{ID: "u1"},
		Data: discordgo.ApplicationCommandInteractionData{
			Name: "account",
			Options: []*discordgo.ApplicationCommandInteractionDataOption{
				{
					Name: sub,
					Type: discordgo.ApplicationCommandOptionSubCommand,
					Options: []*discordgo.ApplicationCommandInteractionDataOption{
						{Name: "uid", Type: discordgo.ApplicationCommandOptionInteger, Value: float64(uid)},
					},
				},
			},
		},
	}}
}

// Switching activates the chosen uid and deactivates every other account
// of the same user, keeping exactly one active.
func TestHandleAccountSwitch(t *testing.T) {
	accts := &fakeAccounts{list: []*accounts.Account{
		{UserID: "u1", UID: 800000001, Active: true},
		{UserID: "u1", UID: 800000002},
		{UserID: "u2", UID: 800000003, Active: true},
	}}
	b, _ := newTestBot(t, accts, &fakeNotifs{})

	b.handleAccount(context.Background(), accountInteraction("switch", 800000002))

	active := 0
	for _, a := range accts.list {
		if a.UserID != "u1" {
			continue
		}
		if a.Active {
			active++
			if a.UID != 800000002 {
				t.Fatalf("active uid = %d, want 800000002", a.UID)
			}
		}
	}
	if active != 1 {
		t.Fatalf("u1 has %d active accounts, want exactly 1", active)
	}
	// Other users' accounts are untouched.
	if a := accts.find("u2", 800000003); a == nil || !a.Active {
		t.Fatal("u2's active account was disturbed")
	}
}

func TestHandleAccountSwitch_UnknownUID(t *testing.T) {
	accts := &fakeAccounts{list: []*accounts.Account{
		{UserID: "u1", UID: 800000001, Active: true},
	}}
	b, bodies := newTestBot(t, accts, &fakeNotifs{})

	b.handleAccount(context.Background(), accountInteraction("switch", 700000000))

	if a := accts.find("u1", 800000001); a == nil || !a.Active {
		t.Fatal("existing active account must stay active")
	}
	if len(*bodies) != 1 || !strings.Contains((*bodies)[0], "Something went wrong") {
		t.Fatalf("want one error reply, got %v", *bodies)
	}
}

// Removing an account also drops its notification rows so the sweeps
// stop visiting a uid that no longer resolves.
func TestHandleAccountRemove(t *testing.T) {
	accts := &fakeAccounts{list: []*accounts.Account{
		{UserID: "u1", UID: 800000001, Active: true},
	}}
	notifs := &fakeNotifs{}
	b, _ := newTestBot(t, accts, notifs)

	b.handleAccount(context.Background(), accountInteraction("remove", 800000001))

	if len(accts.list) != 0 {
		t.Fatalf("account still present: %v", accts.list)
	}
	if len(notifs.deletedFor) != 1 || notifs.deletedFor[0] != [2]any{"u1", int64(800000001)} {
		t.Fatalf("subscriptions not cleaned up: %v", notifs.deletedFor)
	}
}

func TestHandleAccountRemove_UnknownUID(t *testing.T) {
	accts := &fakeAccounts{list: []*accounts.Account{
		{UserID: "u1", UID: 800000001, Active: true},
	}}
	notifs := &fakeNotifs{}
	b, bodies := newTestBot(t, accts, notifs)

	b.handleAccount(context.Background(), accountInteraction("remove", 700000000))

	if len(accts.list) != 1 {
		t.Fatalf("wrong account removed: %v", accts.list)
	}
	if len(notifs.deletedFor) != 0 {
		t.Fatalf("subscriptions deleted for missing account: %v", notifs.deletedFor)
	}
	if len(*bodies) != 1 || !strings.Contains((*bodies)[0], "Something went wrong") {
		t.Fatalf("want one error reply, got %v", *bodies)
	}
}
