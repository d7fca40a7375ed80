package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"auth-portal/internal/domain"
)

const accountsCollection = "users"

type accountDocument struct {
	ID                 string     `bson:"_id"`
	Name               string     `bson:"name"`
	Email              string     `bson:"email"`
	PasswordHash       string     `bson:"password_hash"`
	IsVerified         bool       `bson:"is_verified"`
	VerifyOTP          string     `bson:"verify_otp"`
	VerifyOTPExpiresAt *time.Time `bson:"verify_otp_expires_at"`
	ResetOTP           string     `bson:"reset_otp"`
	ResetOTPExpiresAt  *time.Time `bson:"reset_otp_expires_at"`
	CreatedAt          time.Time  `bson:"created_at"`
	UpdatedAt          time.Time  `bson:"updated_at"`
}

// MongoUserStore implementa UserStore sobre una coleccion de MongoDB.
type MongoUserStore struct {
	coll *mongo.Collection
}

func NewMongoUserStore(db *mongo.Database) *MongoUserStore {
	return &MongoUserStore{coll: db.Collection(accountsCollection)}
}

// EnsureIndexes crea el indice unico sobre email. Es idempotente.
func (r *MongoUserStore) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("users_email_unique"),
	})
	return err
}

func (r *MongoUserStore) FindByEmail(ctx context.Context, email string) (domain.Account, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *MongoUserStore) FindByID(ctx context.Context, id string) (domain.Account, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *MongoUserStore) Save(ctx context.Context, account domain.Account) error {
	doc := toAccountDocument(account)
	doc.UpdatedAt = time.Now().UTC()
	_, err := r.coll.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true))
	if mongo.IsDuplicateKeyError(err) {
		return ErrEmailTaken
	}
	return err
}

func (r *MongoUserStore) SetVerifyOTP(ctx context.Context, id, code string, expiresAt time.Time) error {
	return r.set(ctx, id, bson.M{
		"verify_otp":            code,
		"verify_otp_expires_at": expiresAt,
	})
}

func (r *MongoUserStore) SetResetOTP(ctx context.Context, id, code string, expiresAt time.Time) error {
	return r.set(ctx, id, bson.M{
		"reset_otp":            code,
		"reset_otp_expires_at": expiresAt,
	})
}

func (r *MongoUserStore) MarkVerified(ctx context.Context, id string) error {
	return r.set(ctx, id, bson.M{
		"is_verified":           true,
		"verify_otp":            "",
		"verify_otp_expires_at": nil,
	})
}

func (r *MongoUserStore) ResetPassword(ctx context.Context, id, passwordHash string) error {
	return r.set(ctx, id, bson.M{
		"password_hash":        passwordHash,
		"reset_otp":            "",
		"reset_otp_expires_at": nil,
	})
}

func (r *MongoUserStore) Ping(ctx context.Context) error {
	return r.coll.Database().Client().Ping(ctx, nil)
}

func (r *MongoUserStore) findOne(ctx context.Context, filter bson.M) (domain.Account, error) {
	var doc accountDocument
	err := r.coll.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.Account{}, ErrAccountNotFound
	}
	if err != nil {
		return domain.Account{}, err
	}
	return doc.toAccount(), nil
}

func (r *MongoUserStore) set(ctx context.Context, id string, fields bson.M) error {
	fields["updated_at"] = time.Now().UTC()
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": fields})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func toAccountDocument(a domain.Account) accountDocument {
	return accountDocument{
		ID:                 a.ID,
		Name:               a.Name,
		Email:              a.Email,
		PasswordHash:       a.PasswordHash,
		IsVerified:         a.IsVerified,
		VerifyOTP:          a.VerifyOTP,
		VerifyOTPExpiresAt: utcPtr(a.VerifyOTPExpiresAt),
		ResetOTP:           a.ResetOTP,
		ResetOTPExpiresAt:  utcPtr(a.ResetOTPExpiresAt),
		CreatedAt:          a.CreatedAt.UTC(),
		UpdatedAt:          a.UpdatedAt.UTC(),
	}
}

func (d accountDocument) toAccount() domain.Account {
	return domain.Account{
		ID:                 d.ID,
		Name:               d.Name,
		Email:              d.Email,
		PasswordHash:       d.PasswordHash,
		IsVerified:         d.IsVerified,
		VerifyOTP:          d.VerifyOTP,
		VerifyOTPExpiresAt: utcPtr(d.VerifyOTPExpiresAt),
		ResetOTP:           d.ResetOTP,
		ResetOTPExpiresAt:  utcPtr(d.ResetOTPExpiresAt),
		CreatedAt:          d.CreatedAt.UTC(),
		UpdatedAt:          d.UpdatedAt.UTC(),
	}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
