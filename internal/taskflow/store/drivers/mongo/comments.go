package mongo

import (
	"context"
	"time"

	"github.com/aussiebroadwan/taskflow/internal/taskflow/domain"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type commentDoc struct {
	ID        string    `bson:"_id"`
	Task      string    `bson:"task"`
	User      string    `bson:"user"`
	Content   string    `bson:"content"`
	CreatedAt time.Time `bson:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

func (d commentDoc) toDomain() domain.Comment {
	return domain.Comment{
		ID:        d.ID,
		TaskID:    d.Task,
		UserID:    d.User,
		Content:   d.Content,
		CreatedAt: utc(d.CreatedAt),
		UpdatedAt: utc(d.UpdatedAt),
	}
}

type commentsRepo struct {
	c   *mongo.Collection
	now func() time.Time
}

func (r *commentsRepo) GetCommentByID(ctx context.Context, id string) (domain.Comment, error) {
	var doc commentDoc
	if err := r.c.FindOne(ctx, byID(id)).Decode(&doc); err != nil {
		return domain.Comment{}, mapNotFound(err)
	}
	return doc.toDomain(), nil
}

func (r *commentsRepo) ListCommentsByTask(ctx context.Context, taskID string) ([]domain.Comment, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := r.c.Find(ctx, bson.D{{Key: "task", Value: idValue(taskID)}}, opts)
	if err != nil {
		return nil, err
	}

	var docs []commentDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}

	comments := make([]domain.Comment, 0, len(docs))
	for _, d := range docs {
		comments = append(comments, d.toDomain())
	}
	return comments, nil
}

func (r *commentsRepo) CreateComment(ctx context.Context, c domain.Comment) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = r.now()
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = c.CreatedAt
	}
	_, err := r.c.InsertOne(ctx, commentDoc{
		ID:        c.ID,
		Task:      c.TaskID,
		User:      c.UserID,
		Content:   c.Content,
		CreatedAt: c.CreatedAt.UTC(),
		UpdatedAt: c.UpdatedAt.UTC(),
	})
	return mapDuplicate(err)
}

func (r *commentsRepo) UpdateCommentContent(ctx context.Context, id, content string) error {
	return requireMatch(r.c.UpdateOne(ctx, byID(id), bson.D{{Key: "$set", Value: bson.D{
		{Key: "content", Value: content},
		{Key: "updatedAt", Value: r.now()},
	}}}))
}

func (r *commentsRepo) DeleteComment(ctx context.Context, id string) error {
	return requireDeleted(r.c.DeleteOne(ctx, byID(id)))
}
