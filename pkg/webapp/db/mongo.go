package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	collectionInstallations  = "installations"
	collectionConfigurations = "configurations"
	collectionTasks          = "tasks"
	collectionPullRequests   = "pull_requests"
)

// MongoStore implements Store on top of a mongodb database.
type MongoStore struct {
	database *mongo.Database
}

// ConnectMongo connects to the given mongodb uri and returns a store
// bound to the named database.
func ConnectMongo(ctx context.Context, uri, database string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}
	return &MongoStore{database: client.Database(database)}, nil
}

func (s *MongoStore) GetInstallation(ctx context.Context, installationID int64) (*InstallationModel, error) {
	return findOne[InstallationModel](ctx, s.database.Collection(collectionInstallations),
		bson.M{"installation_id": installationID})
}

func (s *MongoStore) GetInstallationByGitHubID(ctx context.Context, githubID string) (*InstallationModel, error) {
	return findOne[InstallationModel](ctx, s.database.Collection(collectionInstallations),
		bson.M{"github_id": githubID})
}

func (s *MongoStore) ListInstallations(ctx context.Context) ([]*InstallationModel, error) {
	cursor, err := s.database.Collection(collectionInstallations).Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "project_name", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var installations []*InstallationModel
	if err := cursor.All(ctx, &installations); err != nil {
		return nil, err
	}
	return installations, nil
}

func (s *MongoStore) SaveInstallation(ctx context.Context, installation *InstallationModel) error {
	installation.UpdatedAt = time.Now().UTC()
	_, err := s.database.Collection(collectionInstallations).UpdateOne(ctx,
		bson.M{"github_id": installation.GitHubID},
		bson.M{"$set": installation},
		options.Update().SetUpsert(true))
	return err
}

func (s *MongoStore) GetConfiguration(ctx context.Context, githubID string) (*ConfigurationModel, error) {
	return findOne[ConfigurationModel](ctx, s.database.Collection(collectionConfigurations),
		bson.M{"github_id": githubID})
}

func (s *MongoStore) SaveConfiguration(ctx context.Context, configuration *ConfigurationModel) error {
	configuration.UpdatedAt = time.Now().UTC()
	_, err := s.database.Collection(collectionConfigurations).UpdateOne(ctx,
		bson.M{"github_id": configuration.GitHubID},
		bson.M{"$set": configuration},
		options.Update().SetUpsert(true))
	return err
}

func (s *MongoStore) CreateTask(ctx context.Context, task *TaskModel) error {
	now := time.Now().UTC()
	task.CreatedAt = now
	task.UpdatedAt = now
	_, err := s.database.Collection(collectionTasks).InsertOne(ctx, task)
	return err
}

func (s *MongoStore) UpdateTask(ctx context.Context, task *TaskModel) error {
	task.UpdatedAt = time.Now().UTC()
	_, err := s.database.Collection(collectionTasks).UpdateOne(ctx,
		bson.M{"_id": task.ID},
		bson.M{"$set": task})
	return err
}

func (s *MongoStore) ListTasksPaged(ctx context.Context, page Page) ([]*TaskModel, int64, error) {
	return findPaged[TaskModel](ctx, s.database.Collection(collectionTasks), page.normalize("created_at"))
}

func (s *MongoStore) FindPullRequest(ctx context.Context, orgID, repoName string, pullRequest int) (*PullRequestModel, error) {
	return findOne[PullRequestModel](ctx, s.database.Collection(collectionPullRequests),
		bson.M{"org_id": orgID, "repo_name": repoName, "pull_request": pullRequest})
}

func (s *MongoStore) SavePullRequest(ctx context.Context, pullRequest *PullRequestModel) error {
	pullRequest.UpdatedAt = time.Now().UTC()
	_, err := s.database.Collection(collectionPullRequests).UpdateOne(ctx,
		bson.M{
			"org_id":       pullRequest.OrgID,
			"repo_name":    pullRequest.RepoName,
			"pull_request": pullRequest.PullRequest,
		},
		bson.M{"$set": pullRequest},
		options.Update().SetUpsert(true))
	return err
}

func (s *MongoStore) ListPullRequestsPaged(ctx context.Context, page Page) ([]*PullRequestModel, int64, error) {
	return findPaged[PullRequestModel](ctx, s.database.Collection(collectionPullRequests), page.normalize("updated_at"))
}

func findOne[T any](ctx context.Context, collection *mongo.Collection, filter bson.M) (*T, error) {
	var out T
	err := collection.FindOne(ctx, filter).Decode(&out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func findPaged[T any](ctx context.Context, collection *mongo.Collection, page Page) ([]*T, int64, error) {
	filter := bson.M{}
	for field, value := range page.Filters {
		if value != "" {
			filter[field] = value
		}
	}

	order := -1
	if page.SortOrder == "asc" {
		order = 1
	}

	total, err := collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	cursor, err := collection.Find(ctx, filter, options.Find().
		SetSort(bson.D{{Key: page.SortField, Value: order}}).
		SetSkip(int64((page.PageIndex-1)*page.PageSize)).
		SetLimit(int64(page.PageSize)))
	if err != nil {
		return nil, 0, err
	}

	var items []*T
	if err := cursor.All(ctx, &items); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

var _ Store = (*MongoStore)(nil)
