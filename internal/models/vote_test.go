package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVoteActionValid(t *testing.T) {
	require := require.New(t)
	require.True(ActionLike.Valid())
	require.True(ActionDislike.Valid())
	require.False(VoteAction("").Valid())
	require.False(VoteAction("upvote").Valid())
}

func TestGrantCountsRatio(t *testing.T) {
	require := require.New(t)

	ratio := GrantCounts{GrantID: "g1", Likes: 3, Dislikes: 1}.Ratio()
	require.Equal(3, ratio.Likes)
	require.Equal(1, ratio.Dislikes)
	require.InDelta(75.0, ratio.LikePercentage, 1e-9)
	require.InDelta(25.0, ratio.DislikePercentage, 1e-9)
}

func TestGrantCountsRatioEmpty(t *testing.T) {
	require := require.New(t)

	ratio := GrantCounts{GrantID: "g1"}.Ratio()
	require.Equal(0, ratio.Likes)
	require.Equal(0, ratio.Dislikes)
	require.Equal(0.0, ratio.LikePercentage)
	require.Equal(0.0, ratio.DislikePercentage)
}
