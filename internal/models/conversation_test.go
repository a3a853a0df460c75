package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirectConversationDisplayName(t *testing.T) {
	me := uuid.New()
	other := UserSummary{ID: uuid.New(), Username: "fluffy_owner", AvatarURL: "http://img/fluffy.png"}
	conv := &Conversation{
		Kind:         KindDirect,
		Participants: []UserSummary{{ID: me, Username: "me"}, other},
	}

	assert.Equal(t, "fluffy_owner", conv.DisplayName(me))
	assert.Equal(t, "http://img/fluffy.png", conv.DisplayAvatar(me))
}

func TestDirectConversationWithoutPeerFallsBack(t *testing.T) {
	me := uuid.New()

	selfChat := &Conversation{
		Kind:         KindDirect,
		Participants: []UserSummary{{ID: me, Username: "me"}},
	}
	assert.Equal(t, UnknownUserName, selfChat.DisplayName(me))
	assert.Equal(t, "", selfChat.DisplayAvatar(me))

	malformed := &Conversation{Kind: KindDirect}
	assert.Equal(t, UnknownUserName, malformed.DisplayName(me))
}

func TestCommunityDisplayNameFallback(t *testing.T) {
	me := uuid.New()

	named := &Conversation{Kind: KindCommunity, Name: "Cat Cafe Crew", Description: "cats"}
	assert.Equal(t, "Cat Cafe Crew", named.DisplayName(me))

	descOnly := &Conversation{Kind: KindCommunity, Description: "strays of 5th street"}
	assert.Equal(t, "strays of 5th street", descOnly.DisplayName(me))

	bare := &Conversation{Kind: KindCommunity}
	assert.Equal(t, UnknownUserName, bare.DisplayName(me))
}

func TestConversationMatches(t *testing.T) {
	conv := &Conversation{
		Kind:        KindCommunity,
		Name:        "Parrot People",
		Description: "Budgies and beyond",
		Participants: []UserSummary{
			{ID: uuid.New(), Username: "FeatherFan42"},
		},
	}

	assert.True(t, conv.Matches(""))
	assert.True(t, conv.Matches("parrot"))
	assert.True(t, conv.Matches("BUDGIES"))
	assert.True(t, conv.Matches("featherfan"))
	assert.False(t, conv.Matches("goldfish"))
}

func TestChatKindJSONRoundTrip(t *testing.T) {
	for _, kind := range []ChatKind{KindDirect, KindCommunity} {
		data, err := json.Marshal(kind)
		require.NoError(t, err)

		var decoded ChatKind
		require.NoError(t, json.Unmarshal(data, &decoded))
		assert.Equal(t, kind, decoded)
	}

	// The legacy "group" spelling decodes as a community.
	var legacy ChatKind
	require.NoError(t, json.Unmarshal([]byte(`"group"`), &legacy))
	assert.Equal(t, KindCommunity, legacy)

	var invalid ChatKind
	assert.Error(t, json.Unmarshal([]byte(`"carrier-pigeon"`), &invalid))
}

func TestPaginationHasMore(t *testing.T) {
	assert.True(t, Pagination{Total: 60, Page: 1, Pages: 3}.HasMore())
	assert.True(t, Pagination{Total: 60, Page: 2, Pages: 3}.HasMore())
	assert.False(t, Pagination{Total: 60, Page: 3, Pages: 3}.HasMore())
	assert.False(t, Pagination{Total: 0, Page: 1, Pages: 0}.HasMore())
}

func TestLastMessageAt(t *testing.T) {
	empty := &Conversation{}
	assert.True(t, empty.LastMessageAt().IsZero())

	at := time.Now()
	withPreview := &Conversation{LastMessage: &MessagePreview{SentAt: at}}
	assert.Equal(t, at, withPreview.LastMessageAt())
}
