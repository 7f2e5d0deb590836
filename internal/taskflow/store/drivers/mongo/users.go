package mongo

import (
	"context"
	"time"

	"github.com/aussiebroadwan/taskflow/internal/taskflow/domain"
	"github.com/aussiebroadwan/taskflow/internal/taskflow/store"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// userDoc uses the field names of existing "users" collections, so records
// migrated with bcrypt "password" hashes load unchanged.
type userDoc struct {
	ID                     string     `bson:"_id"`
	Name                   string     `bson:"name"`
	Email                  string     `bson:"email"`
	Password               string     `bson:"password"`
	Role                   string     `bson:"role"`
	ForcePasswordChange    bool       `bson:"forcePasswordChange"`
	PasswordResetRequested bool       `bson:"passwordResetRequested"`
	ResetPasswordToken     *string    `bson:"resetPasswordToken,omitempty"`
	ResetPasswordExpires   *time.Time `bson:"resetPasswordExpires,omitempty"`
	CreatedAt              time.Time  `bson:"createdAt"`
	UpdatedAt              time.Time  `bson:"updatedAt"`
}

func (d userDoc) toDomain() domain.User {
	u := domain.User{
		ID:                     d.ID,
		Name:                   d.Name,
		Email:                  d.Email,
		PasswordHash:           d.Password,
		Role:                   d.Role,
		ForcePasswordChange:    d.ForcePasswordChange,
		PasswordResetRequested: d.PasswordResetRequested,
		ResetTokenHash:         d.ResetPasswordToken,
		CreatedAt:              utc(d.CreatedAt),
		UpdatedAt:              utc(d.UpdatedAt),
	}
	if u.Role == "" {
		u.Role = domain.RoleUser
	}
	if d.ResetPasswordExpires != nil {
		exp := d.ResetPasswordExpires.UTC()
		u.ResetTokenExpires = &exp
	}
	return u
}

type usersRepo struct {
	c   *mongo.Collection
	now func() time.Time
}

func (r *usersRepo) findOne(ctx context.Context, filter bson.D) (domain.User, error) {
	var doc userDoc
	if err := r.c.FindOne(ctx, filter).Decode(&doc); err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return doc.toDomain(), nil
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	return r.findOne(ctx, byID(id))
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	return r.findOne(ctx, bson.D{{Key: "email", Value: email}})
}

func (r *usersRepo) GetUserByResetToken(ctx context.Context, tokenHash string) (domain.User, error) {
	return r.findOne(ctx, bson.D{{Key: "resetPasswordToken", Value: tokenHash}})
}

func (r *usersRepo) ListUsers(ctx context.Context) ([]domain.User, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := r.c.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, err
	}

	var docs []userDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}

	users := make([]domain.User, 0, len(docs))
	for _, d := range docs {
		users = append(users, d.toDomain())
	}
	return users, nil
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	now := r.now()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	if u.UpdatedAt.IsZero() {
		u.UpdatedAt = u.CreatedAt
	}
	if u.Role == "" {
		u.Role = domain.RoleUser
	}

	_, err := r.c.InsertOne(ctx, userDoc{
		ID:                     u.ID,
		Name:                   u.Name,
		Email:                  u.Email,
		Password:               u.PasswordHash,
		Role:                   u.Role,
		ForcePasswordChange:    u.ForcePasswordChange,
		PasswordResetRequested: u.PasswordResetRequested,
		ResetPasswordToken:     u.ResetTokenHash,
		ResetPasswordExpires:   u.ResetTokenExpires,
		CreatedAt:              u.CreatedAt.UTC(),
		UpdatedAt:              u.UpdatedAt.UTC(),
	})
	return mapDuplicate(err)
}

func (r *usersRepo) UpdateRole(ctx context.Context, id, role string) error {
	return requireMatch(r.c.UpdateOne(ctx, byID(id), bson.D{{Key: "$set", Value: bson.D{
		{Key: "role", Value: role},
		{Key: "updatedAt", Value: r.now()},
	}}}))
}

func (r *usersRepo) UpdatePassword(ctx context.Context, id string, p store.PasswordUpdate) error {
	set := bson.D{
		{Key: "password", Value: p.Hash},
		{Key: "forcePasswordChange", Value: p.ForceChange},
		{Key: "updatedAt", Value: r.now()},
	}
	update := bson.D{}
	if p.ClearReset {
		set = append(set, bson.E{Key: "passwordResetRequested", Value: false})
		update = append(update, bson.E{Key: "$unset", Value: bson.D{
			{Key: "resetPasswordToken", Value: ""},
			{Key: "resetPasswordExpires", Value: ""},
		}})
	}
	update = append(update, bson.E{Key: "$set", Value: set})

	filter := byID(id)
	if p.ResetTokenHash != "" {
		filter = append(filter, bson.E{Key: "resetPasswordToken", Value: p.ResetTokenHash})
	}
	return requireMatch(r.c.UpdateOne(ctx, filter, update))
}

func (r *usersRepo) SetResetToken(ctx context.Context, id, tokenHash string, expires time.Time) error {
	return requireMatch(r.c.UpdateOne(ctx, byID(id), bson.D{{Key: "$set", Value: bson.D{
		{Key: "resetPasswordToken", Value: tokenHash},
		{Key: "resetPasswordExpires", Value: expires.UTC()},
		{Key: "passwordResetRequested", Value: true},
		{Key: "updatedAt", Value: r.now()},
	}}}))
}

func (r *usersRepo) ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.c.UpdateMany(ctx,
		bson.D{{Key: "resetPasswordExpires", Value: bson.D{{Key: "$lt", Value: now.UTC()}}}},
		bson.D{
			{Key: "$unset", Value: bson.D{
				{Key: "resetPasswordToken", Value: ""},
				{Key: "resetPasswordExpires", Value: ""},
			}},
			{Key: "$set", Value: bson.D{{Key: "updatedAt", Value: r.now()}}},
		},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func (r *usersRepo) IsEmpty(ctx context.Context) (bool, error) {
	n, err := r.c.CountDocuments(ctx, bson.D{}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n == 0, nil
}
