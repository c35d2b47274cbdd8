package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/educationerp/erp-auth/internal/core/domain"
	"github.com/educationerp/erp-auth/internal/core/ports"
)

const accountCollection = "accounts"

// AccountRepository implements ports.AccountRepository on a MongoDB
// collection. Login-attempt transitions are single findAndModify or update
// commands so concurrent requests cannot lose an increment.
type AccountRepository struct {
	coll *mongo.Collection
}

func NewAccountRepository(db *mongo.Database) *AccountRepository {
	return &AccountRepository{coll: db.Collection(accountCollection)}
}

type mongoAccount struct {
	ID                  string `bson:"_id"`
	Identifier          string `bson:"identifier"`
	SecretHash          string `bson:"password_hash"`
	Role                string `bson:"role"`
	TenantID            string `bson:"tenant_id,omitempty"`
	IsLocked            bool   `bson:"is_locked"`
	IsActive            bool   `bson:"is_active"`
	FailedLoginAttempts int    `bson:"failed_login_attempts"`
	LastLoginAt         int64  `bson:"last_login_at,omitempty"`
	SecretChangedAt     int64  `bson:"password_changed_at,omitempty"`
	MustChangeSecret    bool   `bson:"must_change_password"`
	CreatedAt           int64  `bson:"created_at"`
	UpdatedAt           int64  `bson:"updated_at"`
}

func toMongoAccount(a *domain.Account) mongoAccount {
	return mongoAccount{
		ID:                  a.ID,
		Identifier:          a.Identifier,
		SecretHash:          a.SecretHash,
		Role:                string(a.Role),
		TenantID:            a.TenantID,
		IsLocked:            a.IsLocked,
		IsActive:            a.IsActive,
		FailedLoginAttempts: a.FailedLoginAttempts,
		LastLoginAt:         timeToUnix(a.LastLoginAt),
		SecretChangedAt:     timeToUnix(a.SecretChangedAt),
		MustChangeSecret:    a.MustChangeSecret,
		CreatedAt:           a.CreatedAt.Unix(),
		UpdatedAt:           a.UpdatedAt.Unix(),
	}
}

func (m mongoAccount) toDomain() *domain.Account {
	return &domain.Account{
		ID:                  m.ID,
		Identifier:          m.Identifier,
		SecretHash:          m.SecretHash,
		Role:                domain.Role(m.Role),
		TenantID:            m.TenantID,
		IsLocked:            m.IsLocked,
		IsActive:            m.IsActive,
		FailedLoginAttempts: m.FailedLoginAttempts,
		LastLoginAt:         unixToTimePtr(m.LastLoginAt),
		SecretChangedAt:     unixToTimePtr(m.SecretChangedAt),
		MustChangeSecret:    m.MustChangeSecret,
		CreatedAt:           unixToTime(m.CreatedAt),
		UpdatedAt:           unixToTime(m.UpdatedAt),
	}
}

// EnsureIndexes creates the unique identifier index and the tenant index
// used by List.
func (r *AccountRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "identifier", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "identifier", Value: 1}}},
	}

	_, err := r.coll.Indexes().CreateMany(ctx, indexes)
	return err
}

func (r *AccountRepository) FindByIdentifier(ctx context.Context, identifier string) (*domain.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var ma mongoAccount
	if err := r.coll.FindOne(ctx, bson.M{"identifier": identifier}).Decode(&ma); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("find account: %w", err)
	}
	return ma.toDomain(), nil
}

func (r *AccountRepository) Create(ctx context.Context, account *domain.Account) (*domain.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := toMongoAccount(account)
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrAccountExists
		}
		return nil, fmt.Errorf("insert account: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *AccountRepository) List(ctx context.Context, filter ports.AccountFilter) ([]*domain.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	query := bson.M{}
	if filter.TenantID != "" {
		query["tenant_id"] = filter.TenantID
	}
	if !filter.IncludeInactive {
		query["is_active"] = true
	}

	cur, err := r.coll.Find(ctx, query, options.Find().SetSort(bson.D{{Key: "identifier", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer cur.Close(ctx)

	var docs []mongoAccount
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode accounts: %w", err)
	}
	out := make([]*domain.Account, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}

// RecordFailedLogin increments the counter and sets the lock flag in one
// pipeline update on an unlocked account, then returns the document as
// written.
func (r *AccountRepository) RecordFailedLogin(ctx context.Context, identifier string, threshold int, at time.Time) (domain.LoginState, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	threshold = domain.NewLockout(threshold).Threshold
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"failed_login_attempts": bson.M{"$add": bson.A{"$failed_login_attempts", 1}},
			"updated_at":            at.Unix(),
		}}},
		{{Key: "$set", Value: bson.M{
			"is_locked": bson.M{"$gte": bson.A{"$failed_login_attempts", threshold}},
		}}},
	}
	filter := bson.M{"identifier": identifier, "is_active": true, "is_locked": false}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var ma mongoAccount
	err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&ma)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.LoginState{}, r.lockedOrMissing(ctx, identifier)
		}
		return domain.LoginState{}, fmt.Errorf("record failed login: %w", err)
	}
	return domain.LoginState{FailedAttempts: ma.FailedLoginAttempts, Locked: ma.IsLocked}, nil
}

func (r *AccountRepository) RecordSuccessfulLogin(ctx context.Context, identifier string, at time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{"identifier": identifier, "is_active": true, "is_locked": false}
	update := bson.M{"$set": bson.M{
		"failed_login_attempts": 0,
		"last_login_at":         at.Unix(),
		"updated_at":            at.Unix(),
	}}

	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("record login: %w", err)
	}
	if res.MatchedCount > 0 {
		return nil
	}
	return r.lockedOrMissing(ctx, identifier)
}

// lockedOrMissing explains why a login transition matched nothing: the
// account is locked, or there is no active account by that identifier.
func (r *AccountRepository) lockedOrMissing(ctx context.Context, identifier string) error {
	n, err := r.coll.CountDocuments(ctx, bson.M{"identifier": identifier, "is_active": true})
	if err != nil {
		return fmt.Errorf("check account state: %w", err)
	}
	if n == 0 {
		return domain.ErrAccountNotFound
	}
	return domain.ErrAccountLocked
}

func (r *AccountRepository) SetLocked(ctx context.Context, identifier string, locked bool, at time.Time) error {
	set := bson.M{"is_locked": locked, "updated_at": at.Unix()}
	if !locked {
		set["failed_login_attempts"] = 0
	}
	return r.updateOne(ctx, identifier, bson.M{"$set": set})
}

func (r *AccountRepository) Deactivate(ctx context.Context, identifier string, at time.Time) error {
	return r.updateOne(ctx, identifier, bson.M{"$set": bson.M{"is_active": false, "updated_at": at.Unix()}})
}

func (r *AccountRepository) UpdateSecret(ctx context.Context, identifier, secretHash string, mustChange bool, at time.Time) error {
	return r.updateOne(ctx, identifier, bson.M{"$set": bson.M{
		"password_hash":        secretHash,
		"must_change_password": mustChange,
		"password_changed_at":  at.Unix(),
		"updated_at":           at.Unix(),
	}})
}

func (r *AccountRepository) updateOne(ctx context.Context, identifier string, update bson.M) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.coll.UpdateOne(ctx, bson.M{"identifier": identifier}, update)
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

func unixToTime(ts int64) time.Time {
	if ts == 0 {
		return time.Time{}
	}
	return time.Unix(ts, 0).UTC()
}

func unixToTimePtr(ts int64) *time.Time {
	if ts == 0 {
		return nil
	}
	t := unixToTime(ts)
	return &t
}

func timeToUnix(t *time.Time) int64 {
	if t == nil {
		return 0
	}
	return t.Unix()
}

var _ ports.AccountRepository = (*AccountRepository)(nil)
