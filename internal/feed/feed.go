// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package feed wraps the content side of the REST API: posts, comments,
// albums, photos and todos. These are thin typed wrappers over the shared
// HTTP plumbing in internal/directory; presentation stays with the caller.
package feed

import (
	"context"
	"fmt"
	"math/rand"
	"net/url"

	"github.com/morganforge/pixelfeed/internal/directory"
	"github.com/morganforge/pixelfeed/internal/util"
)

// =============================================================================
// RECORDS
// =============================================================================

// Post is a feed post.
type Post struct {
	ID     int    `json:"id,omitempty"`
	UserID int    `json:"userId"`
	Title  string `json:"title"`
	Body   string `json:"body"`
}

// Comment is a comment on a post.
type Comment struct {
	ID     int    `json:"id,omitempty"`
	PostID int    `json:"postId"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Body   string `json:"body"`
}

// Album groups photos under a user.
type Album struct {
	ID     int    `json:"id,omitempty"`
	UserID int    `json:"userId"`
	Title  string `json:"title"`
}

// Photo is one photo inside an album.
type Photo struct {
	ID           int    `json:"id,omitempty"`
	AlbumID      int    `json:"albumId"`
	Title        string `json:"title"`
	URL          string `json:"url"`
	ThumbnailURL string `json:"thumbnailUrl"`
}

// Todo is a user's todo item.
type Todo struct {
	ID        int    `json:"id,omitempty"`
	UserID    int    `json:"userId"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}

// =============================================================================
// SERVICE
// =============================================================================

// PageOptions selects a page of results. Zero values mean no paging.
type PageOptions struct {
	Page  int
	Limit int
}

func (p PageOptions) apply(q url.Values) {
	if p.Page > 0 {
		q.Set("_page", util.IntToString(p.Page))
	}
	if p.Limit > 0 {
		q.Set("_limit", util.IntToString(p.Limit))
	}
}

// Service provides typed access to the content endpoints.
type Service struct {
	client *directory.Client
}

// NewService wraps the shared API client.
func NewService(client *directory.Client) *Service {
	return &Service{client: client}
}

// =============================================================================
// POSTS
// =============================================================================

// ListPosts returns a page of posts.
func (s *Service) ListPosts(ctx context.Context, opts PageOptions) ([]Post, error) {
	q := url.Values{}
	opts.apply(q)

	var posts []Post
	if err := s.client.GetJSON(ctx, "/posts", q, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// PostsByUser returns every post authored by userID.
func (s *Service) PostsByUser(ctx context.Context, userID int) ([]Post, error) {
	q := url.Values{"userId": {util.IntToString(userID)}}

	var posts []Post
	if err := s.client.GetJSON(ctx, "/posts", q, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// DiscoverPosts returns a page of posts by everyone except excludeUserID,
// shuffled so the feed differs between refreshes.
func (s *Service) DiscoverPosts(ctx context.Context, excludeUserID int, opts PageOptions) ([]Post, error) {
	q := url.Values{"userId_ne": {util.IntToString(excludeUserID)}}
	opts.apply(q)

	var posts []Post
	if err := s.client.GetJSON(ctx, "/posts", q, &posts); err != nil {
		return nil, err
	}
	rand.Shuffle(len(posts), func(i, j int) {
		posts[i], posts[j] = posts[j], posts[i]
	})
	return posts, nil
}

// CreatePost publishes a post and returns it with the assigned ID.
func (s *Service) CreatePost(ctx context.Context, post Post) (*Post, error) {
	var created Post
	if err := s.client.PostJSON(ctx, "/posts", post, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdatePost replaces the post record.
func (s *Service) UpdatePost(ctx context.Context, post Post) (*Post, error) {
	if post.ID == 0 {
		return nil, fmt.Errorf("post has no ID")
	}
	var updated Post
	if err := s.client.PutJSON(ctx, "/posts/"+util.IntToString(post.ID), post, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeletePost removes a post.
func (s *Service) DeletePost(ctx context.Context, id int) error {
	return s.client.Delete(ctx, "/posts/"+util.IntToString(id))
}

// =============================================================================
// COMMENTS
// =============================================================================

// CommentsByPost returns the comments on postID.
func (s *Service) CommentsByPost(ctx context.Context, postID int) ([]Comment, error) {
	q := url.Values{"postId": {util.IntToString(postID)}}

	var comments []Comment
	if err := s.client.GetJSON(ctx, "/comments", q, &comments); err != nil {
		return nil, err
	}
	return comments, nil
}

// CreateComment adds a comment and returns it with the assigned ID.
func (s *Service) CreateComment(ctx context.Context, comment Comment) (*Comment, error) {
	var created Comment
	if err := s.client.PostJSON(ctx, "/comments", comment, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// DeleteComment removes a comment.
func (s *Service) DeleteComment(ctx context.Context, id int) error {
	return s.client.Delete(ctx, "/comments/"+util.IntToString(id))
}

// =============================================================================
// ALBUMS AND PHOTOS
// =============================================================================

// AlbumsByUser returns the albums owned by userID.
func (s *Service) AlbumsByUser(ctx context.Context, userID int) ([]Album, error) {
	q := url.Values{"userId": {util.IntToString(userID)}}

	var albums []Album
	if err := s.client.GetJSON(ctx, "/albums", q, &albums); err != nil {
		return nil, err
	}
	return albums, nil
}

// CreateAlbum adds an album for a user.
func (s *Service) CreateAlbum(ctx context.Context, album Album) (*Album, error) {
	var created Album
	if err := s.client.PostJSON(ctx, "/albums", album, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// PhotosByAlbum returns a page of photos from albumID.
func (s *Service) PhotosByAlbum(ctx context.Context, albumID int, opts PageOptions) ([]Photo, error) {
	q := url.Values{"albumId": {util.IntToString(albumID)}}
	opts.apply(q)

	var photos []Photo
	if err := s.client.GetJSON(ctx, "/photos", q, &photos); err != nil {
		return nil, err
	}
	return photos, nil
}

// CreatePhoto adds a photo to an album.
func (s *Service) CreatePhoto(ctx context.Context, photo Photo) (*Photo, error) {
	var created Photo
	if err := s.client.PostJSON(ctx, "/photos", photo, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdatePhoto replaces a photo record.
func (s *Service) UpdatePhoto(ctx context.Context, photo Photo) (*Photo, error) {
	if photo.ID == 0 {
		return nil, fmt.Errorf("photo has no ID")
	}
	var updated Photo
	if err := s.client.PutJSON(ctx, "/photos/"+util.IntToString(photo.ID), photo, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeletePhoto removes a photo.
func (s *Service) DeletePhoto(ctx context.Context, id int) error {
	return s.client.Delete(ctx, "/photos/"+util.IntToString(id))
}

// =============================================================================
// TODOS
// =============================================================================

// TodosByUser returns the todos belonging to userID.
func (s *Service) TodosByUser(ctx context.Context, userID int) ([]Todo, error) {
	q := url.Values{"userId": {util.IntToString(userID)}}

	var todos []Todo
	if err := s.client.GetJSON(ctx, "/todos", q, &todos); err != nil {
		return nil, err
	}
	return todos, nil
}

// CreateTodo adds a todo and returns it with the assigned ID.
func (s *Service) CreateTodo(ctx context.Context, todo Todo) (*Todo, error) {
	var created Todo
	if err := s.client.PostJSON(ctx, "/todos", todo, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateTodo replaces a todo record.
func (s *Service) UpdateTodo(ctx context.Context, todo Todo) (*Todo, error) {
	if todo.ID == 0 {
		return nil, fmt.Errorf("todo has no ID")
	}
	var updated Todo
	if err := s.client.PutJSON(ctx, "/todos/"+util.IntToString(todo.ID), todo, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteTodo removes a todo.
func (s *Service) DeleteTodo(ctx context.Context, id int) error {
	return s.client.Delete(ctx, "/todos/"+util.IntToString(id))
}
