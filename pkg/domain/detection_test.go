package domain_test

import (
	"agroscan/pkg/domain"
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleResult = `{"inference_id":"a1b2","time":0.042,"image":{"width":"1500","height":1000},` +
	`"predictions":[{"x":120.5,"y":88,"width":40,"height":30,"confidence":0.91,"class":"glass",` +
	`"class_id":2,"detection_id":"d-1","extra":{"nested":[1,2]}},` +
	`{"x":1,"y":2,"width":3,"height":4,"confidence":0.5,"class":"food","class_id":0,"detection_id":"d-2"}],` +
	`"unknown":true}`

func TestParseInputMethod(t *testing.T) {
	cases := []struct {
		in   string
		want domain.InputMethod
		ok   bool
	}{
		{in: "", want: domain.MethodUpload, ok: true},
		{in: "upload", want: domain.MethodUpload, ok: true},
		{in: " URL ", want: domain.MethodURL, ok: true},
		{in: "camera", ok: false},
	}

	for _, tc := range cases {
		got, err := domain.ParseInputMethod(tc.in)
		if !tc.ok {
			require.Error(t, err, tc.in)

			continue
		}
		require.NoError(t, err, tc.in)
		require.Equal(t, tc.want, got)
	}
}

func TestParseResult(t *testing.T) {
	res, err := domain.ParseResult(domain.RawResult(sampleResult))
	require.NoError(t, err)

	require.Equal(t, "a1b2", res.InferenceID)
	require.InDelta(t, 0.042, res.Time, 1e-9)
	require.Equal(t, 1500, res.ImageWidth)
	require.Equal(t, 1000, res.ImageHeight)
	require.Len(t, res.Predictions, 2)
	require.Equal(t, domain.Prediction{
		X: 120.5, Y: 88, Width: 40, Height: 30, Confidence: 0.91,
		Class: "glass", ClassID: 2, DetectionID: "d-1",
	}, res.Predictions[0])
	require.Equal(t, "food", res.Predictions[1].Class)
}

func TestParseResult_Invalid(t *testing.T) {
	_, err := domain.ParseResult(domain.RawResult(`[1,2,3]`))
	require.Error(t, err)

	_, err = domain.ParseResult(domain.RawResult(`{"predictions":[{"x":"abc"}]}`))
	require.Error(t, err)
}

func TestRawResult_Pretty(t *testing.T) {
	out, err := domain.RawResult(`{"a":1,"b":[true]}`).Pretty()
	require.NoError(t, err)
	require.Equal(t, "{\n  \"a\": 1,\n  \"b\": [\n    true\n  ]\n}", out)

	_, err = domain.RawResult(`{`).Pretty()
	require.Error(t, err)
}
