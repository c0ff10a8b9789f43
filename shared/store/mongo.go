package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/pavitra93/go-coliving-admin/shared/apperr"
	"github.com/pavitra93/go-coliving-admin/shared/inventory"
	"github.com/pavitra93/go-coliving-admin/shared/models"
)

const membersCollection = "members"

type paymentDoc struct {
	IsPaid        bool        `bson:"isPaid"`
	PaidAt        *time.Time  `bson:"paidAt,omitempty"`
	UpdatedAt     *time.Time  `bson:"updatedAt,omitempty"`
	UpdatedBy     string      `bson:"updatedBy,omitempty"`
	RemindersSent []time.Time `bson:"remindersSent"`
}

// memberDoc is the stored shape of a member; ledger keys are month keys
// in their "2024-3" form
type memberDoc struct {
	ID            string                `bson:"_id"`
	FullName      string                `bson:"fullName"`
	Gender        string                `bson:"gender"`
	Age           int                   `bson:"age"`
	PhoneNumber   string                `bson:"phoneNumber"`
	Email         string                `bson:"email"`
	ParentsNumber string                `bson:"parentsNumber"`
	Address       string                `bson:"address"`
	Occupation    string                `bson:"occupation"`
	Amount        int64                 `bson:"amount"`
	ProfileAsset  string                `bson:"profileAsset,omitempty"`
	Status        string                `bson:"status"`
	JoiningDate   time.Time             `bson:"joiningDate"`
	RoomNumber    string                `bson:"roomNumber"`
	FloorNumber   string                `bson:"floorNumber"`
	RoomType      string                `bson:"roomType"`
	PaymentStatus map[string]paymentDoc `bson:"paymentStatus"`
	Version       int64                 `bson:"version"`
	CreatedAt     time.Time             `bson:"createdAt"`
	UpdatedAt     time.Time             `bson:"updatedAt"`
}

func toDoc(m *models.Member) memberDoc {
	return memberDoc{
		ID:            m.ID.String(),
		FullName:      m.FullName,
		Gender:        string(m.Gender),
		Age:           m.Age,
		PhoneNumber:   m.PhoneNumber,
		Email:         m.Email,
		ParentsNumber: m.ParentsNumber,
		Address:       m.Address,
		Occupation:    m.Occupation,
		Amount:        m.Amount,
		ProfileAsset:  m.ProfileAsset,
		Status:        string(m.Status),
		JoiningDate:   m.JoiningDate,
		RoomNumber:    m.RoomNumber,
		FloorNumber:   string(m.FloorNumber),
		RoomType:      string(m.RoomType),
		PaymentStatus: ledgerToDoc(m.Payments),
		Version:       m.Version,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

func ledgerToDoc(l models.Ledger) map[string]paymentDoc {
	out := make(map[string]paymentDoc, len(l))
	for k, rec := range l {
		if rec == nil {
			continue
		}
		out[k.String()] = paymentDoc{
			IsPaid:        rec.IsPaid,
			PaidAt:        rec.PaidAt,
			UpdatedAt:     rec.UpdatedAt,
			UpdatedBy:     rec.UpdatedBy,
			RemindersSent: rec.RemindersSent,
		}
	}
	return out
}

func (d memberDoc) toMember() (models.Member, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return models.Member{}, err
	}
	m := models.Member{
		ID:            id,
		FullName:      d.FullName,
		Gender:        models.Gender(d.Gender),
		Age:           d.Age,
		PhoneNumber:   d.PhoneNumber,
		Email:         d.Email,
		ParentsNumber: d.ParentsNumber,
		Address:       d.Address,
		Occupation:    d.Occupation,
		Amount:        d.Amount,
		ProfileAsset:  d.ProfileAsset,
		Status:        models.MemberStatus(d.Status),
		JoiningDate:   d.JoiningDate,
		RoomNumber:    d.RoomNumber,
		FloorNumber:   inventory.Floor(d.FloorNumber),
		RoomType:      inventory.ShareType(d.RoomType),
		Version:       d.Version,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
	if len(d.PaymentStatus) > 0 {
		m.Payments = make(models.Ledger, len(d.PaymentStatus))
		for k, p := range d.PaymentStatus {
			key, err := models.ParseMonthKey(k)
			if err != nil {
				// keys outside the ledger range are left out
				continue
			}
			rec := models.PaymentRecord{
				IsPaid:        p.IsPaid,
				PaidAt:        p.PaidAt,
				UpdatedAt:     p.UpdatedAt,
				UpdatedBy:     p.UpdatedBy,
				RemindersSent: p.RemindersSent,
			}
			if rec.RemindersSent == nil {
				rec.RemindersSent = []time.Time{}
			}
			m.Payments[key] = &rec
		}
	}
	return m, nil
}

// MongoRepository stores members as documents with an embedded ledger
type MongoRepository struct {
	coll *mongo.Collection
	now  func() time.Time
}

// NewMongoRepository creates a repository on db's members collection
func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{coll: db.Collection(membersCollection), now: time.Now}
}

// EnsureIndexes creates the unique identity indexes and the status index
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "phoneNumber", Value: 1}}, Options: options.Index().SetUnique(true).SetName("idx_members_phone")},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true).SetName("idx_members_email")},
		{Keys: bson.D{{Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
	})
	return apperr.Storage("create member indexes", err)
}

func (r *MongoRepository) find(ctx context.Context, op string, filter interface{}, opts ...*options.FindOptions) ([]models.Member, error) {
	cur, err := r.coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, apperr.Storage(op, err)
	}
	var docs []memberDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, apperr.Storage(op, err)
	}

	members := make([]models.Member, 0, len(docs))
	for _, d := range docs {
		m, err := d.toMember()
		if err != nil {
			return nil, apperr.Storage(op, err)
		}
		members = append(members, m)
	}
	return members, nil
}

func (r *MongoRepository) FindActive(ctx context.Context) ([]models.Member, error) {
	return r.find(ctx, "find active members",
		bson.M{"status": string(models.MemberStatusActive)},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
}

func (r *MongoRepository) FindAll(ctx context.Context) ([]models.Member, error) {
	return r.find(ctx, "list members", bson.M{},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
}

func (r *MongoRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Member, error) {
	var doc memberDoc
	err := r.coll.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, apperr.Storage("find member", err)
	}
	m, err := doc.toMember()
	if err != nil {
		return nil, apperr.Storage("find member", err)
	}
	return &m, nil
}

func (r *MongoRepository) FindByPhoneOrEmail(ctx context.Context, phone, email string) ([]models.Member, error) {
	return r.find(ctx, "find member by identity", bson.M{"$or": bson.A{
		bson.M{"phoneNumber": phone},
		bson.M{"email": email},
	}})
}

func (r *MongoRepository) Insert(ctx context.Context, m *models.Member) error {
	now := r.now()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	m.UpdatedAt = now
	if m.Version == 0 {
		m.Version = 1
	}
	if _, err := r.coll.InsertOne(ctx, toDoc(m)); err != nil {
		return translateMongoError("insert member", err)
	}
	return nil
}

func (r *MongoRepository) UpdateByID(ctx context.Context, m *models.Member, expectedVersion int64) error {
	next := *m
	next.Version = expectedVersion + 1
	next.UpdatedAt = r.now()

	doc := toDoc(&next)
	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": doc.ID, "version": expectedVersion}, doc)
	if err != nil {
		return translateMongoError("update member", err)
	}
	if res.MatchedCount == 0 {
		return r.missOrConflict(ctx, m.ID)
	}

	m.Version = next.Version
	m.UpdatedAt = next.UpdatedAt
	return nil
}

func (r *MongoRepository) UpdateLedger(ctx context.Context, id uuid.UUID, ledger models.Ledger, expectedVersion int64) error {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": id.String(), "version": expectedVersion},
		bson.M{
			"$set": bson.M{"paymentStatus": ledgerToDoc(ledger), "updatedAt": r.now()},
			"$inc": bson.M{"version": 1},
		})
	if err != nil {
		return apperr.Storage("update payment ledger", err)
	}
	if res.MatchedCount == 0 {
		return r.missOrConflict(ctx, id)
	}
	return nil
}

func (r *MongoRepository) DeleteByID(ctx context.Context, id uuid.UUID) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id.String()})
	if err != nil {
		return apperr.Storage("delete member", err)
	}
	if res.DeletedCount == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

func (r *MongoRepository) missOrConflict(ctx context.Context, id uuid.UUID) error {
	n, err := r.coll.CountDocuments(ctx, bson.M{"_id": id.String()})
	if err != nil {
		return apperr.Storage("check member version", err)
	}
	if n == 0 {
		return apperr.ErrNotFound
	}
	return apperr.ErrConcurrentModification
}

func translateMongoError(op string, err error) error {
	if mongo.IsDuplicateKeyError(err) {
		if dup := duplicateError("duplicate key " + err.Error()); dup != nil {
			return dup
		}
	}
	return apperr.Storage(op, err)
}
