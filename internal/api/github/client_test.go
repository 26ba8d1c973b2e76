package github

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/vilaca/conflict-marker/internal/api"
	"github.com/vilaca/conflict-marker/internal/domain"
)

// mockHTTPClient is a test double for api.HTTPClient.
// Follows FIRST principles - tests are Fast and Independent.
type mockHTTPClient struct {
	mu       sync.Mutex
	requests []*http.Request
	doFunc   func(req *http.Request) (*http.Response, error)
}

func (m *mockHTTPClient) Do(req *http.Request) (*http.Response, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()
	return m.doFunc(req)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     make(http.Header),
		Body:       io.NopCloser(bytes.NewBufferString(body)),
	}
}

func newTestClient(t *testing.T, mockHTTP *mockHTTPClient) *Client {
	t.Helper()
	client, err := NewClient(api.ClientConfig{
		BaseURL:    "https://api.github.test",
		Token:      "test-token",
		Repository: "octo/widgets",
	}, mockHTTP)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	return client
}

// TestNewClient_InvalidRepository tests repository slug validation.
func TestNewClient_InvalidRepository(t *testing.T) {
	for _, repo := range []string{"", "octo", "octo/", "/widgets", "a/b/c"} {
		t.Run(repo, func(t *testing.T) {
			_, err := NewClient(api.ClientConfig{Repository: repo}, &mockHTTPClient{})
			if err == nil {
				t.Errorf("expected error for repository %q", repo)
			}
		})
	}
}

// TestListOpenPullRequests_FollowsPagination tests that every page is read.
// Follows AAA (Arrange, Act, Assert) pattern.
func TestListOpenPullRequests_FollowsPagination(t *testing.T) {
	// Arrange
	page1 := `[{"number": 1, "title": "first", "user": {"login": "alice"}, "labels": [{"id": 7, "name": "conflicts"}]}]`
	page2 := `[{"number": 2, "title": "second", "user": {"login": "bob"}, "labels": []}]`

	mockHTTP := &mockHTTPClient{
		doFunc: func(req *http.Request) (*http.Response, error) {
			if req.Header.Get("Authorization") != "Bearer test-token" {
				t.Errorf("expected bearer token, got %q", req.Header.Get("Authorization"))
			}
			if req.URL.Query().Get("page") == "2" {
				return jsonResponse(http.StatusOK, page2), nil
			}
			if req.URL.Query().Get("state") != "open" {
				t.Errorf("expected state=open, got %q", req.URL.RawQuery)
			}
			resp := jsonResponse(http.StatusOK, page1)
			resp.Header.Set("Link", `<https://api.github.test/repos/octo/widgets/pulls?state=open&per_page=100&page=2>; rel="next", <https://api.github.test/repos/octo/widgets/pulls?state=open&per_page=100&page=2>; rel="last"`)
			return resp, nil
		},
	}
	client := newTestClient(t, mockHTTP)

	// Act
	prs, err := client.ListOpenPullRequests(context.Background())

	// Assert
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(prs) != 2 {
		t.Fatalf("expected 2 pull requests, got %d", len(prs))
	}
	if len(mockHTTP.requests) != 2 {
		t.Errorf("expected 2 requests, got %d", len(mockHTTP.requests))
	}
	if prs[0].Author != "alice" || prs[1].Author != "bob" {
		t.Errorf("unexpected authors: %q, %q", prs[0].Author, prs[1].Author)
	}
	if !prs[0].HasLabel(domain.Label{ID: 7, Name: "conflicts"}) {
		t.Error("expected first pull request to carry the conflicts label")
	}
}

// TestListOpenPullRequests_APIError tests error handling when API returns error.
func TestListOpenPullRequests_APIError(t *testing.T) {
	// Arrange
	mockHTTP := &mockHTTPClient{
		doFunc: func(req *http.Request) (*http.Response, error) {
			return jsonResponse(http.StatusUnauthorized, `{"message":"Bad credentials"}`), nil
		},
	}
	client := newTestClient(t, mockHTTP)

	// Act
	prs, err := client.ListOpenPullRequests(context.Background())

	// Assert
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if prs != nil {
		t.Errorf("expected nil pull requests on error, got %v", prs)
	}
	if !strings.Contains(err.Error(), "401") {
		t.Errorf("expected error to mention status code 401, got: %v", err)
	}
}

// TestGetPullRequest tests retrieving a pull request with its mergeable state.
func TestGetPullRequest(t *testing.T) {
	// Arrange
	responseBody := `{
		"number": 12,
		"title": "Add widgets",
		"html_url": "https://github.com/octo/widgets/pull/12",
		"user": {"login": "carol"},
		"labels": [{"id": 3, "name": "bug"}],
		"mergeable_state": "dirty"
	}`
	mockHTTP := &mockHTTPClient{
		doFunc: func(req *http.Request) (*http.Response, error) {
			if req.URL.Path != "/repos/octo/widgets/pulls/12" {
				t.Errorf("unexpected path %q", req.URL.Path)
			}
			return jsonResponse(http.StatusOK, responseBody), nil
		},
	}
	client := newTestClient(t, mockHTTP)

	// Act
	pr, err := client.GetPullRequest(context.Background(), 12)

	// Assert
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if pr.Number != 12 {
		t.Errorf("expected number 12, got %d", pr.Number)
	}
	if pr.MergeableState != domain.MergeableStateDirty {
		t.Errorf("expected mergeable state 'dirty', got '%s'", pr.MergeableState)
	}
	if pr.Author != "carol" {
		t.Errorf("expected author 'carol', got '%s'", pr.Author)
	}
	if len(pr.Labels) != 1 || pr.Labels[0].ID != 3 {
		t.Errorf("unexpected labels %v", pr.Labels)
	}
}

// TestGetLabel tests resolving a label name to its id.
func TestGetLabel(t *testing.T) {
	// Arrange
	mockHTTP := &mockHTTPClient{
		doFunc: func(req *http.Request) (*http.Response, error) {
			if req.URL.EscapedPath() != "/repos/octo/widgets/labels/merge%20conflicts" {
				t.Errorf("unexpected path %q", req.URL.EscapedPath())
			}
			return jsonResponse(http.StatusOK, `{"id": 99, "name": "merge conflicts"}`), nil
		},
	}
	client := newTestClient(t, mockHTTP)

	// Act
	label, err := client.GetLabel(context.Background(), "merge conflicts")

	// Assert
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if label.ID != 99 || label.Name != "merge conflicts" {
		t.Errorf("unexpected label %+v", label)
	}
}

// TestGetLabel_NotFound tests that a missing label is an error.
func TestGetLabel_NotFound(t *testing.T) {
	mockHTTP := &mockHTTPClient{
		doFunc: func(req *http.Request) (*http.Response, error) {
			return jsonResponse(http.StatusNotFound, `{"message":"Not Found"}`), nil
		},
	}
	client := newTestClient(t, mockHTTP)

	_, err := client.GetLabel(context.Background(), "conflicts")

	if !api.IsNotFound(err) {
		t.Errorf("expected not found error, got %v", err)
	}
}

// TestCreateComment tests the comment request body.
func TestCreateComment(t *testing.T) {
	// Arrange
	var got githubCommentRequest
	mockHTTP := &mockHTTPClient{
		doFunc: func(req *http.Request) (*http.Response, error) {
			if req.Method != http.MethodPost || req.URL.Path != "/repos/octo/widgets/issues/5/comments" {
				t.Errorf("unexpected request %s %s", req.Method, req.URL.Path)
			}
			if err := json.NewDecoder(req.Body).Decode(&got); err != nil {
				t.Fatalf("failed to decode body: %v", err)
			}
			return jsonResponse(http.StatusCreated, `{"id": 1}`), nil
		},
	}
	client := newTestClient(t, mockHTTP)

	// Act
	err := client.CreateComment(context.Background(), 5, "hello @dave")

	// Assert
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got.Body != "hello @dave" {
		t.Errorf("expected body 'hello @dave', got '%s'", got.Body)
	}
}

// TestAddLabel tests the add label request body.
func TestAddLabel(t *testing.T) {
	// Arrange
	var got githubLabelsRequest
	mockHTTP := &mockHTTPClient{
		doFunc: func(req *http.Request) (*http.Response, error) {
			if req.Method != http.MethodPost || req.URL.Path != "/repos/octo/widgets/issues/5/labels" {
				t.Errorf("unexpected request %s %s", req.Method, req.URL.Path)
			}
			if err := json.NewDecoder(req.Body).Decode(&got); err != nil {
				t.Fatalf("failed to decode body: %v", err)
			}
			return jsonResponse(http.StatusOK, `[]`), nil
		},
	}
	client := newTestClient(t, mockHTTP)

	// Act
	err := client.AddLabel(context.Background(), 5, "conflicts")

	// Assert
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(got.Labels) != 1 || got.Labels[0] != "conflicts" {
		t.Errorf("expected labels [conflicts], got %v", got.Labels)
	}
}

// TestRemoveLabel tests removal and the already-absent case.
func TestRemoveLabel(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr bool
	}{
		{"removed", http.StatusOK, false},
		{"already absent", http.StatusNotFound, false},
		{"forbidden", http.StatusForbidden, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			mockHTTP := &mockHTTPClient{
				doFunc: func(req *http.Request) (*http.Response, error) {
					if req.Method != http.MethodDelete || req.URL.Path != "/repos/octo/widgets/issues/5/labels/conflicts" {
						t.Errorf("unexpected request %s %s", req.Method, req.URL.Path)
					}
					return jsonResponse(tt.status, `[]`), nil
				},
			}
			client := newTestClient(t, mockHTTP)

			// Act
			err := client.RemoveLabel(context.Background(), 5, "conflicts")

			// Assert
			if (err != nil) != tt.wantErr {
				t.Errorf("RemoveLabel() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

// TestNextPageURL tests Link header parsing.
func TestNextPageURL(t *testing.T) {
	tests := []struct {
		name string
		link string
		want string
	}{
		{"empty", "", ""},
		{"last page", `<https://x/pulls?page=1>; rel="first", <https://x/pulls?page=2>; rel="prev"`, ""},
		{"next first", `<https://x/pulls?page=3>; rel="next", <https://x/pulls?page=9>; rel="last"`, "https://x/pulls?page=3"},
		{"next after prev", `<https://x/pulls?page=1>; rel="prev", <https://x/pulls?page=3>; rel="next"`, "https://x/pulls?page=3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := nextPageURL(tt.link); got != tt.want {
				t.Errorf("nextPageURL() = %q, want %q", got, tt.want)
			}
		})
	}
}
