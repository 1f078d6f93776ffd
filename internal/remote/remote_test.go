package remote

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/konsulin-care/pubcraft-editor-sub000/internal/draft"
	"github.com/konsulin-care/pubcraft-editor-sub000/internal/github"
	"github.com/konsulin-care/pubcraft-editor-sub000/internal/kvstore"
	"github.com/konsulin-care/pubcraft-editor-sub000/internal/manuscript"
	"github.com/konsulin-care/pubcraft-editor-sub000/internal/resolver"
)

type fakeFile struct {
	content string
	sha     string
}

// fakeRepo serves the contents and pulls endpoints over an in-memory file
// map, recording write order and carried SHAs.
type fakeRepo struct {
	mu         sync.Mutex
	files      map[string]fakeFile
	shaSeq     int
	putOrder   []string
	putSHAs    map[string]string // path -> SHA carried on last put
	failDelete map[string]bool
	pulls      []github.NewPullRequest
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		files:      make(map[string]fakeFile),
		putSHAs:    make(map[string]string),
		failDelete: make(map[string]bool),
	}
}

func (f *fakeRepo) nextSHA() string {
	f.shaSeq++
	return fmt.Sprintf("sha-%d", f.shaSeq)
}

func (f *fakeRepo) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /repos/{owner}/{repo}/contents/{path...}", func(w http.ResponseWriter, r *http.Request) {
		p := r.PathValue("path")
		f.mu.Lock()
		defer f.mu.Unlock()

		if file, ok := f.files[p]; ok {
			json.NewEncoder(w).Encode(github.ContentFile{
				Name:     filepath.Base(p),
				Path:     p,
				SHA:      file.sha,
				Type:     "file",
				Content:  base64.StdEncoding.EncodeToString([]byte(file.content)),
				Encoding: "base64",
			})
			return
		}

		var entries []github.ContentFile
		for path, file := range f.files {
			if strings.HasPrefix(path, p+"/") {
				entries = append(entries, github.ContentFile{
					Name: filepath.Base(path),
					Path: path,
					SHA:  file.sha,
					Type: "file",
				})
			}
		}
		if len(entries) == 0 {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(entries)
	})

	mux.HandleFunc("PUT /repos/{owner}/{repo}/contents/{path...}", func(w http.ResponseWriter, r *http.Request) {
		p := r.PathValue("path")
		var body struct {
			Content string `json:"content"`
			SHA     string `json:"sha"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		decoded, _ := base64.StdEncoding.DecodeString(body.Content)

		f.mu.Lock()
		f.putOrder = append(f.putOrder, p)
		f.putSHAs[p] = body.SHA
		file := fakeFile{content: string(decoded), sha: f.nextSHA()}
		f.files[p] = file
		f.mu.Unlock()

		json.NewEncoder(w).Encode(map[string]any{"content": github.ContentFile{Path: p, SHA: file.sha}})
	})

	mux.HandleFunc("DELETE /repos/{owner}/{repo}/contents/{path...}", func(w http.ResponseWriter, r *http.Request) {
		p := r.PathValue("path")
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.failDelete[p] {
			w.WriteHeader(http.StatusConflict)
			json.NewEncoder(w).Encode(map[string]string{"message": "merge conflict"})
			return
		}
		delete(f.files, p)
		w.Write([]byte("{}"))
	})

	mux.HandleFunc("POST /repos/{owner}/{repo}/pulls", func(w http.ResponseWriter, r *http.Request) {
		var pr github.NewPullRequest
		json.NewDecoder(r.Body).Decode(&pr)
		f.mu.Lock()
		f.pulls = append(f.pulls, pr)
		f.mu.Unlock()
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(github.PullRequest{Number: 42, State: "open", HTMLURL: "https://github.com/o/r/pull/42"})
	})

	return mux
}

type testEnv struct {
	fake   *fakeRepo
	syncer *Syncer
	drafts *draft.Store
	res    *resolver.Resolver
}

func newTestEnv(t *testing.T, conn *resolver.Connection) *testEnv {
	t.Helper()

	fake := newFakeRepo()
	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)

	kv, err := kvstore.Open(filepath.Join(t.TempDir(), "store.db"))
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { kv.Close() })

	gh := github.NewClient(github.WithBaseURL(srv.URL), github.WithToken("t"))
	res := resolver.New(gh, kv)
	drafts := draft.NewStore(kv)

	if conn != nil {
		if err := res.SaveConnection("user1", conn); err != nil {
			t.Fatal(err)
		}
	}

	s := NewSyncer(gh, res, drafts)
	s.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return &testEnv{fake: fake, syncer: s, drafts: drafts, res: res}
}

func saveDraft(t *testing.T, env *testEnv, title, markdown string, refs []manuscript.Reference) {
	t.Helper()
	err := env.drafts.Save(&manuscript.Draft{
		Markdown:   markdown,
		Metadata:   manuscript.Metadata{Title: title},
		References: refs,
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestSync_FirstSyncSkipsEmptyBib(t *testing.T) {
	env := newTestEnv(t, &resolver.Connection{
		Owner: "o", Repo: "r", Branch: "draft-jane",
		MarkdownFile: "draft/my-paper/pubcraft-manuscript.md",
	})
	saveDraft(t, env, "My Paper", "# My Paper\n\nBody.", nil)

	result, err := env.syncer.Sync(context.Background(), "user1")
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}

	if result.BibWritten {
		t.Error("BibWritten = true for empty bibliography")
	}
	if _, ok := env.fake.files["draft/my-paper/pubcraft-reference.bib"]; ok {
		t.Error("empty bibliography was written remotely")
	}
	if got := env.fake.files["draft/my-paper/pubcraft-manuscript.md"].content; got != "# My Paper\n\nBody." {
		t.Errorf("manuscript content = %q", got)
	}

	// New files carry no prior SHA
	if sha := env.fake.putSHAs["draft/my-paper/pubcraft-manuscript.md"]; sha != "" {
		t.Errorf("first write carried SHA %q", sha)
	}

	d, err := env.drafts.Load()
	if err != nil {
		t.Fatal(err)
	}
	if d.Dirty {
		t.Error("draft still dirty after sync")
	}

	conn, err := env.res.LoadConnection("user1")
	if err != nil {
		t.Fatal(err)
	}
	if conn.LastSync.IsZero() {
		t.Error("LastSync not updated")
	}
}

func TestSync_ManuscriptBeforeBib(t *testing.T) {
	env := newTestEnv(t, &resolver.Connection{
		Owner: "o", Repo: "r", Branch: "draft-jane",
		MarkdownFile: "draft/my-paper/pubcraft-manuscript.md",
	})
	refs := []manuscript.Reference{{ID: "smith2024", Type: "article", Title: "T", Author: "Smith, J.", Year: "2024"}}
	saveDraft(t, env, "My Paper", "See [@smith2024].", refs)

	result, err := env.syncer.Sync(context.Background(), "user1")
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	if !result.BibWritten {
		t.Error("BibWritten = false")
	}

	var manuscriptIdx, bibIdx int = -1, -1
	for i, p := range env.fake.putOrder {
		switch p {
		case "draft/my-paper/pubcraft-manuscript.md":
			manuscriptIdx = i
		case "draft/my-paper/pubcraft-reference.bib":
			bibIdx = i
		}
	}
	if manuscriptIdx == -1 || bibIdx == -1 {
		t.Fatalf("writes = %v", env.fake.putOrder)
	}
	if manuscriptIdx > bibIdx {
		t.Errorf("bibliography written before manuscript: %v", env.fake.putOrder)
	}

	bib := env.fake.files["draft/my-paper/pubcraft-reference.bib"].content
	if !strings.Contains(bib, "@article{smith2024,") {
		t.Errorf("bibliography content = %q", bib)
	}
}

func TestSync_SecondSyncCarriesPriorSHA(t *testing.T) {
	env := newTestEnv(t, &resolver.Connection{
		Owner: "o", Repo: "r", Branch: "draft-jane",
		MarkdownFile: "draft/my-paper/pubcraft-manuscript.md",
	})
	saveDraft(t, env, "My Paper", "v1", nil)
	if _, err := env.syncer.Sync(context.Background(), "user1"); err != nil {
		t.Fatal(err)
	}
	firstSHA := env.fake.files["draft/my-paper/pubcraft-manuscript.md"].sha

	saveDraft(t, env, "My Paper", "v2", nil)
	if _, err := env.syncer.Sync(context.Background(), "user1"); err != nil {
		t.Fatal(err)
	}

	if got := env.fake.putSHAs["draft/my-paper/pubcraft-manuscript.md"]; got != firstSHA {
		t.Errorf("second write carried SHA %q, want %q", got, firstSHA)
	}
	if got := env.fake.files["draft/my-paper/pubcraft-manuscript.md"].content; got != "v2" {
		t.Errorf("content = %q", got)
	}
}

func TestSync_TitleRenameCleansOldDirectory(t *testing.T) {
	env := newTestEnv(t, &resolver.Connection{
		Owner: "o", Repo: "r", Branch: "draft-jane",
		MarkdownFile: "draft/old-title/pubcraft-manuscript.md",
	})
	env.fake.files["draft/old-title/pubcraft-manuscript.md"] = fakeFile{content: "old", sha: "s1"}
	env.fake.files["draft/old-title/metadata.yml"] = fakeFile{content: "title: Old Title", sha: "s2"}

	saveDraft(t, env, "New Title", "# New Title", nil)

	result, err := env.syncer.Sync(context.Background(), "user1")
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}

	if result.RenamedFrom != "draft/old-title" {
		t.Errorf("RenamedFrom = %q", result.RenamedFrom)
	}
	if len(result.DeleteFailures) != 0 {
		t.Errorf("DeleteFailures = %v", result.DeleteFailures)
	}
	if _, ok := env.fake.files["draft/old-title/pubcraft-manuscript.md"]; ok {
		t.Error("old manuscript file not deleted")
	}
	if _, ok := env.fake.files["draft/new-title/pubcraft-manuscript.md"]; !ok {
		t.Error("new manuscript file not written")
	}

	conn, err := env.res.LoadConnection("user1")
	if err != nil {
		t.Fatal(err)
	}
	if conn.MarkdownFile != "draft/new-title/pubcraft-manuscript.md" {
		t.Errorf("MarkdownFile = %q", conn.MarkdownFile)
	}
}

func TestSync_RenameDeleteFailureIsNotFatal(t *testing.T) {
	env := newTestEnv(t, &resolver.Connection{
		Owner: "o", Repo: "r", Branch: "draft-jane",
		MarkdownFile: "draft/old-title/pubcraft-manuscript.md",
	})
	env.fake.files["draft/old-title/pubcraft-manuscript.md"] = fakeFile{content: "old", sha: "s1"}
	env.fake.files["draft/old-title/pubcraft-reference.bib"] = fakeFile{content: "@article{a, title={T}, author={A}, year={2020}}", sha: "s2"}
	env.fake.failDelete["draft/old-title/pubcraft-reference.bib"] = true

	saveDraft(t, env, "New Title", "# New Title", nil)

	result, err := env.syncer.Sync(context.Background(), "user1")
	if err != nil {
		t.Fatalf("Sync() error = %v, want success despite delete failure", err)
	}

	if len(result.DeleteFailures) != 1 {
		t.Fatalf("DeleteFailures = %v, want one entry", result.DeleteFailures)
	}
	if result.DeleteFailures[0].Path != "draft/old-title/pubcraft-reference.bib" {
		t.Errorf("failure path = %q", result.DeleteFailures[0].Path)
	}

	// The sync itself still completed
	conn, err := env.res.LoadConnection("user1")
	if err != nil {
		t.Fatal(err)
	}
	if conn.MarkdownFile != "draft/new-title/pubcraft-manuscript.md" {
		t.Errorf("MarkdownFile = %q", conn.MarkdownFile)
	}
}

func TestSync_UntitledDraftLeavesRemoteAlone(t *testing.T) {
	// A draft without a title must be rejected outright. Before the guard
	// it slugged to "draft/", which the rename cleanup treated as a move
	// away from the stored directory and deleted its files.
	env := newTestEnv(t, &resolver.Connection{
		Owner: "o", Repo: "r", Branch: "draft-jane",
		MarkdownFile: "draft/my-paper/pubcraft-manuscript.md",
	})
	env.fake.files["draft/my-paper/pubcraft-manuscript.md"] = fakeFile{content: "body", sha: "s1"}
	env.fake.files["draft/my-paper/metadata.yml"] = fakeFile{content: "title: My Paper", sha: "s2"}

	saveDraft(t, env, "", "# still here", nil)

	_, err := env.syncer.Sync(context.Background(), "user1")
	if !errors.Is(err, ErrIncompleteDraft) {
		t.Fatalf("error = %v, want ErrIncompleteDraft", err)
	}

	if _, ok := env.fake.files["draft/my-paper/pubcraft-manuscript.md"]; !ok {
		t.Error("remote manuscript file deleted")
	}
	if _, ok := env.fake.files["draft/my-paper/metadata.yml"]; !ok {
		t.Error("remote metadata file deleted")
	}
	if len(env.fake.putOrder) != 0 {
		t.Errorf("writes = %v, want none", env.fake.putOrder)
	}
}

func TestSync_EmptyDraftContent(t *testing.T) {
	env := newTestEnv(t, &resolver.Connection{
		Owner: "o", Repo: "r", Branch: "draft-jane",
		MarkdownFile: "draft/my-paper/pubcraft-manuscript.md",
	})
	saveDraft(t, env, "My Paper", "   \n", nil)

	_, err := env.syncer.Sync(context.Background(), "user1")
	if !errors.Is(err, ErrIncompleteDraft) {
		t.Errorf("error = %v, want ErrIncompleteDraft", err)
	}
	if len(env.fake.putOrder) != 0 {
		t.Errorf("writes = %v, want none", env.fake.putOrder)
	}
}

func TestSync_NoDraft(t *testing.T) {
	env := newTestEnv(t, &resolver.Connection{
		Owner: "o", Repo: "r", Branch: "draft-jane",
		MarkdownFile: "draft/x/pubcraft-manuscript.md",
	})

	_, err := env.syncer.Sync(context.Background(), "user1")
	if !errors.Is(err, ErrNothingToSync) {
		t.Errorf("error = %v, want ErrNothingToSync", err)
	}
}

func TestSync_NoConnection(t *testing.T) {
	env := newTestEnv(t, nil)
	saveDraft(t, env, "My Paper", "body", nil)

	_, err := env.syncer.Sync(context.Background(), "user1")
	if !errors.Is(err, resolver.ErrNoConnection) {
		t.Errorf("error = %v, want ErrNoConnection", err)
	}
}

func TestCreateMergeRequest(t *testing.T) {
	env := newTestEnv(t, &resolver.Connection{
		Owner: "o", Repo: "r", Branch: "draft-jane",
		MarkdownFile: "draft/my-paper/pubcraft-manuscript.md",
	})
	saveDraft(t, env, "My Paper", "body", nil)

	mr, err := env.syncer.CreateMergeRequest(context.Background(), "user1")
	if err != nil {
		t.Fatalf("CreateMergeRequest() error = %v", err)
	}

	if mr.Number != 42 || mr.Head != "draft-jane" || mr.Base != "publish" {
		t.Errorf("merge request = %+v", mr)
	}

	if len(env.fake.pulls) != 1 {
		t.Fatalf("pulls = %v", env.fake.pulls)
	}
	pr := env.fake.pulls[0]
	if pr.Title != "Publish: My Paper" {
		t.Errorf("title = %q", pr.Title)
	}
	if pr.Head != "draft-jane" || pr.Base != "publish" {
		t.Errorf("head/base = %s/%s", pr.Head, pr.Base)
	}
	if !strings.Contains(pr.Body, "My Paper") {
		t.Errorf("body = %q", pr.Body)
	}
}
