package navigator

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	n := Default()

	tests := []struct {
		path  string
		found bool
		view  View
		title string
	}{
		{"/", true, ViewHome, "UnblurAI - 文字去模糊识别"},
		{"", true, ViewHome, "UnblurAI - 文字去模糊识别"},
		{"/result", true, ViewResult, "UnblurAI - 识别结果"},
		{"/result/", true, ViewResult, "UnblurAI - 识别结果"},
		{"/unknown", false, "", ""},
		{"/result/extra", false, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			route, ok := n.Resolve(tt.path)

			require.Equal(t, tt.found, ok)
			require.Equal(t, tt.view, route.View)
			require.Equal(t, tt.title, route.Title)
		})
	}
}

func TestLookup(t *testing.T) {
	n := Default()

	route, ok := n.Lookup("result")
	require.True(t, ok)
	require.Equal(t, "/result", route.Path)

	_, ok = n.Lookup("missing")
	require.False(t, ok)
}

func TestRoutesReturnsCopy(t *testing.T) {
	n := Default()

	routes := n.Routes()
	require.Len(t, routes, 2)

	routes[0].Title = "changed"

	route, _ := n.Resolve("/")
	require.Equal(t, "UnblurAI - 文字去模糊识别", route.Title)
}
