package inference

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pipartner/api/internal/conversation"
)

func marshal(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}

func TestBuildRequest_FreshText(t *testing.T) {
	p, err := BuildRequest("2+2=?", "", nil)
	require.NoError(t, err)
	assert.False(t, p.IsFollowUp())
	assert.JSONEq(t, `{"input_type":"text","problem":"2+2=?"}`, marshal(t, p))
}

func TestBuildRequest_FreshImageOnly(t *testing.T) {
	p, err := BuildRequest("", "aW1hZ2U=", nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"input_type":"image","image_data":"aW1hZ2U="}`, marshal(t, p))
}

func TestBuildRequest_ImageWinsOverText(t *testing.T) {
	p, err := BuildRequest("caption", "aW1hZ2U=", nil)
	require.NoError(t, err)
	assert.Equal(t, InputImage, p.InputType)
	assert.Empty(t, p.Problem)
}

func TestBuildRequest_FollowUpCarriesOriginalProblem(t *testing.T) {
	held := &conversation.Context{
		OriginalProblem:  conversation.Problem{Text: "solve x+1=3"},
		PreviousResponse: "x = 2",
	}
	p, err := BuildRequest("why subtract 1?", "", held)
	require.NoError(t, err)
	require.True(t, p.IsFollowUp())

	assert.JSONEq(t, `{
		"input_type": "text",
		"problem": "why subtract 1?",
		"context": {
			"originalProblem": {"text": "solve x+1=3"},
			"previousResponse": "x = 2",
			"isFollowUp": true
		}
	}`, marshal(t, p))
}

func TestBuildRequest_FollowUpWithImageContext(t *testing.T) {
	held := &conversation.Context{
		OriginalProblem:  conversation.Problem{Image: "b3JpZw=="},
		PreviousResponse: "area = 12",
	}
	p, err := BuildRequest("", "bmV3", held)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"input_type": "image",
		"image_data": "bmV3",
		"context": {
			"originalProblem": {"text": "", "image": "b3JpZw=="},
			"previousResponse": "area = 12",
			"isFollowUp": true
		}
	}`, marshal(t, p))
}

func TestBuildRequest_Empty(t *testing.T) {
	_, err := BuildRequest("   ", "", nil)
	assert.ErrorIs(t, err, ErrEmptyProblem)
}
