package model

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chatAt(id int64, name, ts string, msgs ...Message) Chat {
	return Chat{ID: id, Name: name, Timestamp: ts, Messages: msgs}
}

func TestDeriveName(t *testing.T) {
	tests := []struct {
		name     string
		messages []Message
		want     string
	}{
		{"four words", []Message{UserMessage("how do I bake bread today")}, "how do I bake ..."},
		{"short", []Message{UserMessage("hi")}, "hi ..."},
		{"collapses whitespace", []Message{UserMessage("  hello \n  there  ")}, "hello there ..."},
		{"skips bot messages", []Message{BotMessage("welcome"), UserMessage("plan a trip")}, "plan a trip ..."},
		{"no user message", []Message{BotMessage("welcome")}, UnnamedChatName},
		{"empty", nil, UnnamedChatName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveName(tt.messages))
		})
	}
}

func TestReplaceMessagesRenamesOnce(t *testing.T) {
	c := NewChat("", time.UnixMilli(1000))
	require.Equal(t, DefaultChatName, c.Name)

	renamed := c.ReplaceMessages([]Message{UserMessage("first question here please")})
	assert.True(t, renamed)
	assert.Equal(t, "first question here please ...", c.Name)

	renamed = c.ReplaceMessages([]Message{UserMessage("another one entirely")})
	assert.False(t, renamed)
	assert.Equal(t, "first question here please ...", c.Name)
	assert.Len(t, c.Messages, 1)
}

func TestUniqueID(t *testing.T) {
	chats := []Chat{{ID: 10}, {ID: 11}}
	assert.Equal(t, int64(12), UniqueID(chats, 10))
	assert.Equal(t, int64(5), UniqueID(chats, 5))
}

func TestTimestampOrderIsLexicographic(t *testing.T) {
	a := FormatTimestamp(time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC))
	b := FormatTimestamp(time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC))
	c := FormatTimestamp(time.Date(2024, 11, 2, 10, 0, 0, 5_000_000, time.FixedZone("x", 3600)))
	assert.Less(t, a, b)
	assert.Less(t, b, c)
}

func TestMergedChatsOrder(t *testing.T) {
	chats := []Chat{chatAt(1, "a", "t1"), chatAt(2, "b", "t2")}
	projects := []Project{
		{Name: "P", Chats: []Chat{chatAt(1, "pa", "t3")}},
		{Name: "Q", Chats: []Chat{chatAt(7, "qa", "t4")}},
	}
	merged := MergedChats(chats, projects)
	require.Len(t, merged, 4)
	assert.Equal(t, ChatRef{ID: 1, Scope: ScopeStandalone}, merged[0].Ref())
	assert.Equal(t, ChatRef{ID: 2, Scope: ScopeStandalone}, merged[1].Ref())
	assert.Equal(t, ChatRef{ID: 1, Scope: ScopeProject, Project: "P"}, merged[2].Ref())
	assert.Equal(t, "[Q] qa", merged[3].DisplayName())
}

func TestMostRecent(t *testing.T) {
	_, ok := MostRecent(nil)
	assert.False(t, ok)

	merged := MergedChats(
		[]Chat{chatAt(1, "a", "2024-01-01T00:00:00.000Z"), chatAt(2, "b", "2024-01-03T00:00:00.000Z")},
		[]Project{{Name: "P", Chats: []Chat{chatAt(3, "c", "2024-01-03T00:00:00.000Z")}}},
	)
	got, ok := MostRecent(merged)
	require.True(t, ok)
	assert.Equal(t, int64(2), got.ID, "ties keep the standalone chat listed first")
}

func TestSearch(t *testing.T) {
	merged := MergedChats(
		[]Chat{
			chatAt(1, "Bread recipes", "t1"),
			chatAt(2, "Travel", "t2", UserMessage("Where is KYOTO?")),
		},
		[]Project{{Name: "P", Chats: []Chat{chatAt(3, "misc", "t3", BotMessage("bread is good"))}}},
	)

	assert.Equal(t, merged, Search(merged, ""), "empty term is identity")

	got := Search(merged, "BREAD")
	require.Len(t, got, 2)
	assert.Equal(t, int64(1), got[0].ID)
	assert.Equal(t, int64(3), got[1].ID)

	got = Search(merged, "kyoto")
	require.Len(t, got, 1)
	assert.Equal(t, int64(2), got[0].ID)

	assert.Empty(t, Search(merged, "nothing matches"))
}

func TestRecentN(t *testing.T) {
	var chats []Chat
	for i := 0; i < 7; i++ {
		chats = append(chats, chatAt(int64(i), "c", FormatTimestamp(time.UnixMilli(int64(i)*1000))))
	}
	got := RecentN(MergedChats(chats, nil), 0)
	require.Len(t, got, DefaultRecentCount)
	assert.Equal(t, int64(6), got[0].ID)
	assert.Equal(t, int64(2), got[4].ID)

	assert.Len(t, RecentN(MergedChats(chats, nil), 2), 2)
}

func TestValidateProjectName(t *testing.T) {
	projects := []Project{{Name: "Work"}}

	assert.NoError(t, ValidateProjectName(projects, "work"), "names are case-sensitive")
	assert.True(t, errors.Is(ValidateProjectName(projects, "Work"), ErrValidation))
	assert.True(t, errors.Is(ValidateProjectName(projects, "   "), ErrValidation))
	assert.True(t, errors.Is(ValidateChatName(""), ErrValidation))
}

func TestSessionContext(t *testing.T) {
	empty := EmptySession()
	_, ok := empty.Ref()
	assert.False(t, ok)

	ref := ChatRef{ID: 5, Scope: ScopeProject, Project: "P"}
	ctx := Activate(ref)
	require.NotNil(t, ctx.ActiveProjectName)
	assert.Equal(t, "P", *ctx.ActiveProjectName)
	assert.True(t, ctx.IsActive(ref))
	assert.True(t, ctx.InProject("P"))
	assert.False(t, ctx.IsActive(ChatRef{ID: 5, Scope: ScopeStandalone}))

	standalone := Activate(RefFor(9, ""))
	assert.Nil(t, standalone.ActiveProjectName)
	assert.Equal(t, ScopeStandalone, standalone.ActiveScope)
}

func TestVoiceSettingsRate(t *testing.T) {
	assert.Equal(t, 1.0, VoiceSettings{Speed: ""}.Rate())
	assert.Equal(t, 1.5, VoiceSettings{Speed: "1.5"}.Rate())
	assert.Equal(t, 1.0, VoiceSettings{Speed: "-2"}.Rate())
	assert.Equal(t, VoiceDefault, VoiceSettings{}.Profile())
}

func TestVoiceSettingsValidate(t *testing.T) {
	assert.NoError(t, DefaultVoiceSettings().Validate())
	assert.NoError(t, VoiceSettings{Voice: VoiceRobotic, Speed: "0.5"}.Validate())
	assert.ErrorIs(t, VoiceSettings{Voice: "whisper", Speed: "1"}.Validate(), ErrValidation)
	assert.ErrorIs(t, VoiceSettings{Voice: VoiceMale, Speed: "fast"}.Validate(), ErrValidation)
	assert.ErrorIs(t, VoiceSettings{Voice: VoiceMale, Speed: "20"}.Validate(), ErrValidation)
}

func TestProjectChatsNewestFirst(t *testing.T) {
	p := Project{Chats: []Chat{{ID: 1}, {ID: 2}, {ID: 3}}}
	got := p.ChatsNewestFirst()
	assert.Equal(t, []int64{3, 2, 1}, []int64{got[0].ID, got[1].ID, got[2].ID})
}
