package query

import (
	"testing"
	"time"

	"github.com/pierredavidbelanger/logscope/api"
	"github.com/stretchr/testify/require"
)

func TestBuildEmptyCriteria(t *testing.T) {
	params, err := Build(api.FilterCriteria{}, 1, PageSize, time.UTC)
	require.NoError(t, err)
	require.Equal(t, "limit=10&page=1", Encode(params))
}

func TestBuildTrimsAndOmitsBlank(t *testing.T) {
	c := api.FilterCriteria{
		Search:           "  timeout  ",
		Level:            "ERROR",
		ResourceID:       "   ",
		TraceID:          "\tabc-123\n",
		SpanID:           "",
		Commit:           " 5e5342f ",
		ParentResourceID: " server-0987 ",
		Regex:            " ^conn.*refused$ ",
		Message:          "    ",
	}

	params, err := Build(c, 2, PageSize, time.UTC)
	require.NoError(t, err)

	require.Equal(t, "timeout", params.Get("search"))
	require.Equal(t, "ERROR", params.Get("level"))
	require.Equal(t, "abc-123", params.Get("traceId"))
	require.Equal(t, "5e5342f", params.Get("commit"))
	require.Equal(t, "server-0987", params.Get("parentResourceId"))
	require.Equal(t, "^conn.*refused$", params.Get("regex"))
	require.Equal(t, "2", params.Get("page"))
	require.Equal(t, "10", params.Get("limit"))

	for _, name := range []string{"resourceId", "spanId", "message", "startTime", "endTime"} {
		_, ok := params[name]
		require.False(t, ok, name)
	}
}

func TestBuildWhitespaceOnlyEqualsAbsent(t *testing.T) {
	blank, err := Build(api.FilterCriteria{Search: " ", Level: "\t", StartTime: "  "}, 1, PageSize, time.UTC)
	require.NoError(t, err)

	empty, err := Build(api.FilterCriteria{}, 1, PageSize, time.UTC)
	require.NoError(t, err)

	require.Equal(t, Encode(empty), Encode(blank))
}

func TestBuildConvertsLocalTimes(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)

	params, err := Build(api.FilterCriteria{
		StartTime: "2023-09-15T08:00",
		EndTime:   "2023-09-15T10:30:15",
	}, 1, PageSize, loc)
	require.NoError(t, err)

	require.Equal(t, "2023-09-15T06:00:00.000Z", params.Get("startTime"))
	require.Equal(t, "2023-09-15T08:30:15.000Z", params.Get("endTime"))
}

func TestBuildKeepsExplicitOffset(t *testing.T) {
	params, err := Build(api.FilterCriteria{StartTime: "2023-09-15T08:00:00-05:00"}, 1, PageSize, time.UTC)
	require.NoError(t, err)
	require.Equal(t, "2023-09-15T13:00:00.000Z", params.Get("startTime"))
}

func TestBuildRejectsInvalidTime(t *testing.T) {
	_, err := Build(api.FilterCriteria{EndTime: "yesterday"}, 1, PageSize, time.UTC)
	require.Error(t, err)
	require.Contains(t, err.Error(), "endTime")
}

func TestBuildDoesNotValidateRegex(t *testing.T) {
	params, err := Build(api.FilterCriteria{Regex: "([a-z"}, 1, PageSize, time.UTC)
	require.NoError(t, err)
	require.Equal(t, "([a-z", params.Get("regex"))
}

func TestBuildIsDeterministic(t *testing.T) {
	c := api.FilterCriteria{
		Search:    "failed",
		Level:     "warn",
		Commit:    "abc",
		StartTime: "2023-09-15T08:00",
		Message:   "db",
	}

	first, err := Build(c, 3, PageSize, time.UTC)
	require.NoError(t, err)
	second, err := Build(c, 3, PageSize, time.UTC)
	require.NoError(t, err)

	require.Equal(t, Encode(first), Encode(second))
	require.Equal(t,
		"commit=abc&level=warn&limit=10&message=db&page=3&search=failed&startTime=2023-09-15T08%3A00%3A00.000Z",
		Encode(first))
}
