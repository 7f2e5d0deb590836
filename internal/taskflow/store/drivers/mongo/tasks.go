package mongo

import (
	"context"
	"regexp"
	"time"

	"github.com/aussiebroadwan/taskflow/internal/taskflow/domain"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type taskDoc struct {
	ID          string    `bson:"_id"`
	Title       string    `bson:"title"`
	Description string    `bson:"description"`
	Status      string    `bson:"status"`
	CreatedBy   string    `bson:"createdBy"`
	AssignedTo  string    `bson:"assignedTo,omitempty"`
	Tags        []string  `bson:"tags"`
	CreatedAt   time.Time `bson:"createdAt"`
	UpdatedAt   time.Time `bson:"updatedAt"`
}

func (d taskDoc) toDomain() domain.Task {
	tags := d.Tags
	if tags == nil {
		tags = []string{}
	}
	return domain.Task{
		ID:          d.ID,
		Title:       d.Title,
		Description: d.Description,
		Status:      d.Status,
		CreatedBy:   d.CreatedBy,
		AssignedTo:  d.AssignedTo,
		Tags:        tags,
		CreatedAt:   utc(d.CreatedAt),
		UpdatedAt:   utc(d.UpdatedAt),
	}
}

type tasksRepo struct {
	c        *mongo.Collection
	comments *mongo.Collection
	now      func() time.Time
}

func (r *tasksRepo) GetTaskByID(ctx context.Context, id string) (domain.Task, error) {
	var doc taskDoc
	if err := r.c.FindOne(ctx, byID(id)).Decode(&doc); err != nil {
		return domain.Task{}, mapNotFound(err)
	}
	return doc.toDomain(), nil
}

// taskFilter ANDs every condition. Search is escaped so user input is never
// interpreted as a pattern.
func taskFilter(f domain.TaskFilter) bson.D {
	and := bson.A{}
	if f.Viewer != "" {
		and = append(and, bson.D{{Key: "$or", Value: bson.A{
			bson.D{{Key: "createdBy", Value: idValue(f.Viewer)}},
			bson.D{{Key: "assignedTo", Value: idValue(f.Viewer)}},
		}}})
	}
	if f.Status != "" {
		and = append(and, bson.D{{Key: "status", Value: f.Status}})
	}
	if f.AssignedTo != "" {
		and = append(and, bson.D{{Key: "assignedTo", Value: idValue(f.AssignedTo)}})
	}
	if f.Search != "" {
		re := bson.Regex{Pattern: regexp.QuoteMeta(f.Search), Options: "i"}
		and = append(and, bson.D{{Key: "$or", Value: bson.A{
			bson.D{{Key: "title", Value: re}},
			bson.D{{Key: "description", Value: re}},
		}}})
	}

	if len(and) == 0 {
		return bson.D{}
	}
	return bson.D{{Key: "$and", Value: and}}
}

func (r *tasksRepo) ListTasks(ctx context.Context, f domain.TaskFilter) ([]domain.Task, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := r.c.Find(ctx, taskFilter(f), opts)
	if err != nil {
		return nil, err
	}

	var docs []taskDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}

	tasks := make([]domain.Task, 0, len(docs))
	for _, d := range docs {
		tasks = append(tasks, d.toDomain())
	}
	return tasks, nil
}

func (r *tasksRepo) CreateTask(ctx context.Context, t domain.Task) error {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = r.now()
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = t.CreatedAt
	}
	tags := t.Tags
	if tags == nil {
		tags = []string{}
	}

	_, err := r.c.InsertOne(ctx, taskDoc{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Status:      t.Status,
		CreatedBy:   t.CreatedBy,
		AssignedTo:  t.AssignedTo,
		Tags:        tags,
		CreatedAt:   t.CreatedAt.UTC(),
		UpdatedAt:   t.UpdatedAt.UTC(),
	})
	return mapDuplicate(err)
}

func (r *tasksRepo) UpdateTask(ctx context.Context, t domain.Task) error {
	tags := t.Tags
	if tags == nil {
		tags = []string{}
	}
	set := bson.D{
		{Key: "title", Value: t.Title},
		{Key: "description", Value: t.Description},
		{Key: "status", Value: t.Status},
		{Key: "tags", Value: tags},
		{Key: "updatedAt", Value: r.now()},
	}
	update := bson.D{}
	if t.AssignedTo == "" {
		update = append(update, bson.E{Key: "$unset", Value: bson.D{{Key: "assignedTo", Value: ""}}})
	} else {
		set = append(set, bson.E{Key: "assignedTo", Value: t.AssignedTo})
	}
	update = append(update, bson.E{Key: "$set", Value: set})

	return requireMatch(r.c.UpdateOne(ctx, byID(t.ID), update))
}

// DeleteTask removes the task document, then sweeps its comments.
func (r *tasksRepo) DeleteTask(ctx context.Context, id string) error {
	if err := requireDeleted(r.c.DeleteOne(ctx, byID(id))); err != nil {
		return err
	}
	_, err := r.comments.DeleteMany(ctx, bson.D{{Key: "task", Value: idValue(id)}})
	return err
}
