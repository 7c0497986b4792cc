package services

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/gosimple/slug"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/codyseavey/card-nexus/internal/models"
)

const DefaultPostCategory = "general"

var postCategories = map[string]bool{
	"general":  true,
	"trading":  true,
	"strategy": true,
	"news":     true,
	"showcase": true,
}

// ForumService holds community posts, threaded comments and likes. Post
// bodies are markdown; the rendered HTML is stored alongside. Raw HTML in
// the markdown is not rendered.
type ForumService struct {
	db       *gorm.DB
	markdown goldmark.Markdown
}

func NewForumService(db *gorm.DB) *ForumService {
	return &ForumService{
		db: db,
		markdown: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(html.WithHardWraps()),
		),
	}
}

func (s *ForumService) render(body string) (string, error) {
	var buf bytes.Buffer
	if err := s.markdown.Convert([]byte(body), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return buf.String(), nil
}

func (s *ForumService) CreatePost(ctx context.Context, authorID string, req models.CreatePostRequest) (*models.Post, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" || len(title) > 200 {
		return nil, invalid("title", "must be 1-200 characters")
	}
	body := strings.TrimSpace(req.Body)
	if body == "" || len(body) > 20000 {
		return nil, invalid("body", "must be 1-20000 characters")
	}
	category := strings.ToLower(strings.TrimSpace(req.Category))
	if category == "" {
		category = DefaultPostCategory
	}
	if !postCategories[category] {
		return nil, invalid("category", "unknown category %q", req.Category)
	}

	rendered, err := s.render(body)
	if err != nil {
		return nil, err
	}

	post := models.Post{
		AuthorID: authorID,
		Title:    title,
		Slug:     slug.Make(title),
		Category: category,
		Body:     body,
		BodyHTML: rendered,
	}
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(&post).Error; err != nil {
		return nil, err
	}
	return s.GetPost(ctx, post.ID)
}

func (s *ForumService) ListPosts(ctx context.Context, f models.PostFilter) (*models.PostPage, error) {
	query := s.db.WithContext(ctx).Model(&models.Post{})
	if f.Category != "" {
		query = query.Where("category = ?", strings.ToLower(f.Category))
	}
	if f.AuthorID != "" {
		query = query.Where("author_id = ?", f.AuthorID)
	}

	posts := []models.Post{}
	pagination, err := paginate(query, f.Page, f.Limit, "created_at DESC, id DESC", &posts, preloadUser("Author"))
	if err != nil {
		return nil, err
	}
	return &models.PostPage{Posts: posts, Pagination: pagination}, nil
}

// GetPost returns a post with its comments oldest first.
func (s *ForumService) GetPost(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	err := s.db.WithContext(ctx).
		Scopes(preloadUser("Author")).
		Preload("Comments", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC, id ASC") }).
		Preload("Comments.Author", func(db *gorm.DB) *gorm.DB { return db.Select(publicUserColumns) }).
		First(&post, id).Error
	if err != nil {
		return nil, translate(err, "post")
	}
	return &post, nil
}

func (s *ForumService) DeletePost(ctx context.Context, userID string, id uint) error {
	var post models.Post
	if err := s.db.WithContext(ctx).First(&post, id).Error; err != nil {
		return translate(err, "post")
	}
	if post.AuthorID != userID {
		return ErrForbidden
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", id).Delete(&models.PostLike{}).Error; err != nil {
			return err
		}
		return tx.Delete(&post).Error
	})
}

// AddComment replies to a post, or to another comment on the same post
// when ParentID is set.
func (s *ForumService) AddComment(ctx context.Context, authorID string, postID uint, req models.CreateCommentRequest) (*models.Comment, error) {
	body := strings.TrimSpace(req.Body)
	if body == "" || len(body) > 5000 {
		return nil, invalid("body", "must be 1-5000 characters")
	}

	comment := models.Comment{PostID: postID, AuthorID: authorID, ParentID: req.ParentID, Body: body}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post models.Post
		if err := tx.Select("id").First(&post, postID).Error; err != nil {
			return translate(err, "post")
		}
		if req.ParentID != nil {
			var parent models.Comment
			if err := tx.First(&parent, *req.ParentID).Error; err != nil {
				return translate(err, "parent comment")
			}
			if parent.PostID != postID {
				return invalid("parent_id", "comment belongs to another post")
			}
		}
		if err := tx.Omit(clause.Associations).Create(&comment).Error; err != nil {
			return err
		}
		return tx.Model(&models.Post{}).Where("id = ?", postID).
			UpdateColumn("comment_count", gorm.Expr("comment_count + 1")).Error
	})
	if err != nil {
		return nil, err
	}
	return &comment, nil
}

// DeleteComment removes a comment and re-parents its replies to the
// deleted comment's parent.
func (s *ForumService) DeleteComment(ctx context.Context, userID string, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var comment models.Comment
		if err := tx.First(&comment, id).Error; err != nil {
			return translate(err, "comment")
		}
		if comment.AuthorID != userID {
			return ErrForbidden
		}
		if err := tx.Model(&models.Comment{}).Where("parent_id = ?", id).
			Update("parent_id", comment.ParentID).Error; err != nil {
			return err
		}
		if err := tx.Delete(&comment).Error; err != nil {
			return err
		}
		return tx.Model(&models.Post{}).Where("id = ? AND comment_count > 0", comment.PostID).
			UpdateColumn("comment_count", gorm.Expr("comment_count - 1")).Error
	})
}

// SetPostLike mirrors DeckService.SetLike for posts.
func (s *ForumService) SetPostLike(ctx context.Context, userID string, id uint, liked bool) (*models.LikeState, error) {
	state := &models.LikeState{Liked: liked}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post models.Post
		if err := tx.Select("id").First(&post, id).Error; err != nil {
			return translate(err, "post")
		}

		var res *gorm.DB
		if liked {
			res = tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&models.PostLike{PostID: id, UserID: userID})
		} else {
			res = tx.Where("post_id = ? AND user_id = ?", id, userID).Delete(&models.PostLike{})
		}
		if res.Error != nil {
			return res.Error
		}

		delta := res.RowsAffected
		if !liked {
			delta = -delta
		}
		if delta != 0 {
			if err := tx.Model(&models.Post{}).Where("id = ?", id).
				UpdateColumn("like_count", gorm.Expr("like_count + ?", delta)).Error; err != nil {
				return err
			}
		}

		var count int64
		if err := tx.Model(&models.Post{}).Where("id = ?", id).Select("like_count").Scan(&count).Error; err != nil {
			return err
		}
		state.LikeCount = int(count)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return state, nil
}
