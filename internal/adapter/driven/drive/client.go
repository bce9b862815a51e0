// Package drive implements the folder ports over the Google Drive v3 API.
package drive

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gregjones/httpcache"
	"golang.org/x/oauth2/google"
	gdrive "google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/ericfisherdev/sitepanel/internal/domain/model"
	"github.com/ericfisherdev/sitepanel/internal/domain/port/driven"
)

const (
	folderMimeType  = "application/vnd.google-apps.folder"
	folderURLPrefix = "https://drive.google.com/drive/folders/"
	listFields      = "nextPageToken, files(id, name, webViewLink, modifiedTime, driveId, parents)"
	// maxPagesPerTerm bounds how much of a broad search is fetched.
	maxPagesPerTerm = 5
	// minSearchTermRunes skips tokens too short to narrow a search.
	minSearchTermRunes = 3
)

// Compile-time interface satisfaction checks.
var (
	_ driven.FolderSearcher = (*Client)(nil)
	_ driven.FolderCreator  = (*Client)(nil)
)

// Client searches and creates customer folders in Google Drive.
type Client struct {
	srv          *gdrive.Service
	rootFolderID string
	subfolders   []string
	logger       *slog.Logger
}

// Options configures where folders are created.
type Options struct {
	// RootFolderID is the parent of new customer folders; empty means the
	// service account's root.
	RootFolderID string
	// Subfolders are created inside every new customer folder.
	Subfolders []string
	Logger     *slog.Logger
}

// NewClient creates a Drive client authenticated with a service account
// key file. The transport stack is:
//  1. httpcache (ETag-based conditional request caching)
//  2. oauth2 JWT token source
func NewClient(ctx context.Context, credentialsFile string, opts Options) (*Client, error) {
	data, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read drive credentials: %w", err)
	}

	conf, err := google.JWTConfigFromJSON(data, gdrive.DriveScope)
	if err != nil {
		return nil, fmt.Errorf("parse drive credentials: %w", err)
	}

	cacheTransport := &httpcache.Transport{
		Transport:           conf.Client(ctx).Transport,
		Cache:               httpcache.NewMemoryCache(),
		MarkCachedResponses: true,
	}
	httpClient := &http.Client{Transport: cacheTransport, Timeout: 30 * time.Second}

	return NewClientWithHTTPClient(ctx, httpClient, "", opts)
}

// NewClientWithHTTPClient creates a Client over a caller-supplied HTTP
// client. A non-empty endpoint overrides the API base URL, which lets tests
// point the client at an httptest server.
func NewClientWithHTTPClient(ctx context.Context, httpClient *http.Client, endpoint string, opts Options) (*Client, error) {
	clientOpts := []option.ClientOption{option.WithHTTPClient(httpClient)}
	if endpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(endpoint))
	}

	srv, err := gdrive.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		srv:          srv,
		rootFolderID: opts.RootFolderID,
		subfolders:   opts.Subfolders,
		logger:       logger,
	}, nil
}

// Search lists non-trashed folders whose names contain a significant word of
// name or any alias. Results are deduplicated by ID and left unscored. Each
// candidate's Path is "<parent name>/<folder name>"; parent names are looked
// up once per search.
func (c *Client) Search(ctx context.Context, name string, aliases []string) ([]model.FolderCandidate, error) {
	seen := make(map[string]bool)
	parents := make(map[string]string)
	var out []model.FolderCandidate

	for _, term := range searchTerms(name, aliases) {
		found, err := c.searchTerm(ctx, term)
		if err != nil {
			return nil, err
		}
		for _, f := range found {
			if seen[f.Id] {
				continue
			}
			seen[f.Id] = true
			out = append(out, toCandidate(f, c.parentName(ctx, f, parents)))
		}
	}

	c.logger.Debug("drive folder search", "name", name, "aliases", len(aliases), "results", len(out))
	return out, nil
}

func (c *Client) searchTerm(ctx context.Context, term string) ([]*gdrive.File, error) {
	query := fmt.Sprintf("mimeType = '%s' and trashed = false and name contains '%s'", folderMimeType, escapeQuery(term))

	var out []*gdrive.File
	pageToken := ""
	for page := 0; page < maxPagesPerTerm; page++ {
		call := c.srv.Files.List().
			Q(query).
			Fields(listFields).
			SupportsAllDrives(true).
			IncludeItemsFromAllDrives(true).
			PageSize(100).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		resp, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("search drive folders for %q: %w", term, err)
		}
		out = append(out, resp.Files...)

		if resp.NextPageToken == "" {
			break
		}
		pageToken = resp.NextPageToken
	}
	return out, nil
}

// parentName returns the name of f's first parent, memoized in cache. A
// failed lookup is logged and yields "", leaving the path as the bare name.
func (c *Client) parentName(ctx context.Context, f *gdrive.File, cache map[string]string) string {
	if len(f.Parents) == 0 {
		return ""
	}
	id := f.Parents[0]
	if name, ok := cache[id]; ok {
		return name
	}

	parent, err := c.srv.Files.Get(id).
		Fields("id, name").
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	name := ""
	if err != nil {
		c.logger.Debug("drive parent lookup failed", "folder_id", f.Id, "parent_id", id, "error", err)
	} else {
		name = parent.Name
	}
	cache[id] = name
	return name
}

// CreateStructured creates the customer folder and its standard subfolders.
// metadata is attached as app properties of the customer folder.
func (c *Client) CreateStructured(ctx context.Context, name string, metadata map[string]string) (model.FolderStructure, error) {
	main, err := c.createFolder(ctx, name, c.rootFolderID, metadata)
	if err != nil {
		return model.FolderStructure{}, fmt.Errorf("create folder %q: %w", name, err)
	}

	structure := model.FolderStructure{
		MainFolderID:  main.Id,
		MainFolderURL: folderURL(main),
		Subfolders:    make(map[string]string, len(c.subfolders)),
	}

	for _, sub := range c.subfolders {
		created, err := c.createFolder(ctx, sub, main.Id, nil)
		if err != nil {
			return structure, fmt.Errorf("create subfolder %q in %s: %w", sub, main.Id, err)
		}
		structure.Subfolders[sub] = created.Id
	}

	c.logger.Info("drive folder created", "name", name, "id", main.Id, "subfolders", len(structure.Subfolders))
	return structure, nil
}

func (c *Client) createFolder(ctx context.Context, name, parentID string, props map[string]string) (*gdrive.File, error) {
	file := &gdrive.File{
		Name:          name,
		MimeType:      folderMimeType,
		AppProperties: props,
	}
	if parentID != "" {
		file.Parents = []string{parentID}
	}

	return c.srv.Files.Create(file).
		Fields("id, name, webViewLink").
		SupportsAllDrives(true).
		Context(ctx).
		Do()
}

// Ping checks that the credentials can reach the Drive API.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.srv.About.Get().Fields("user").Context(ctx).Do(); err != nil {
		return fmt.Errorf("drive about: %w", err)
	}
	return nil
}

func toCandidate(f *gdrive.File, parentName string) model.FolderCandidate {
	cand := model.FolderCandidate{
		ID:         f.Id,
		Name:       f.Name,
		Path:       f.Name,
		URL:        folderURL(f),
		ParentType: "my_drive",
	}
	if parentName != "" {
		cand.Path = parentName + "/" + f.Name
	}
	if f.DriveId != "" {
		cand.ParentType = "shared_drive"
	}
	if t, err := time.Parse(time.RFC3339, f.ModifiedTime); err == nil {
		cand.LastModified = &t
	}
	return cand
}

func folderURL(f *gdrive.File) string {
	if f.WebViewLink != "" {
		return f.WebViewLink
	}
	return folderURLPrefix + f.Id
}

// searchTerms returns the first significant word of name and each alias,
// deduplicated case-insensitively.
func searchTerms(name string, aliases []string) []string {
	seen := make(map[string]bool)
	var terms []string
	for _, s := range append([]string{name}, aliases...) {
		term := firstSignificantWord(s)
		key := strings.ToLower(term)
		if term == "" || seen[key] {
			continue
		}
		seen[key] = true
		terms = append(terms, term)
	}
	return terms
}

func firstSignificantWord(s string) string {
	words := strings.Fields(s)
	for _, w := range words {
		w = strings.Trim(w, ".,&()-'\"")
		if utf8.RuneCountInString(w) >= minSearchTermRunes {
			return w
		}
	}
	return strings.TrimSpace(s)
}

var queryEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

func escapeQuery(s string) string {
	return queryEscaper.Replace(s)
}
