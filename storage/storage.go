package storage

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"
	log "github.com/sirupsen/logrus"

	"flowboard-api/domain"
)

const (
	boardPartition = "board"
	itemPartition  = "item"

	timeFormat = time.RFC3339Nano
)

// queueAPI is the slice of the queue client the store and sweeper use.
type queueAPI interface {
	Create(ctx context.Context, o *azqueue.CreateOptions) (azqueue.CreateResponse, error)
	EnqueueMessage(ctx context.Context, content string, o *azqueue.EnqueueMessageOptions) (azqueue.EnqueueMessagesResponse, error)
	DequeueMessage(ctx context.Context, o *azqueue.DequeueMessageOptions) (azqueue.DequeueMessagesResponse, error)
	DeleteMessage(ctx context.Context, messageID string, popReceipt string, o *azqueue.DeleteMessageOptions) (azqueue.DeleteMessageResponse, error)
}

// Storage provides access to the boards and items tables and the cascade
// cleanup queue. One instance is constructed at startup and shared by every
// handler; the underlying clients are safe for concurrent use.
type Storage struct {
	svc     *aztables.ServiceClient
	boards  *aztables.Client
	items   *aztables.Client
	cleanup queueAPI
	logger  *log.Logger
}

// New creates a Storage instance from the given connection string.
func New(connStr, boardsTable, itemsTable, cleanupQueue string, logger *log.Logger) (*Storage, error) {
	tablesClientOptions := aztables.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    3,
				TryTimeout:    time.Minute * 3,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 15,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	svc, err := aztables.NewServiceClientFromConnectionString(connStr, &tablesClientOptions)
	if err != nil {
		return nil, err
	}

	queueClientOptions := azqueue.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    5,
				TryTimeout:    time.Minute * 5,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 60,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	cq, err := azqueue.NewQueueClientFromConnectionString(connStr, cleanupQueue, &queueClientOptions)
	if err != nil {
		return nil, err
	}

	return &Storage{
		svc:     svc,
		boards:  svc.NewClient(boardsTable),
		items:   svc.NewClient(itemsTable),
		cleanup: cq,
		logger:  logger,
	}, nil
}

// EnsureResources creates the tables and the cleanup queue if they do not
// exist yet.
func (s *Storage) EnsureResources(ctx context.Context) error {
	for _, t := range []*aztables.Client{s.boards, s.items} {
		if _, err := t.CreateTable(ctx, nil); err != nil {
			var respErr *azcore.ResponseError
			if !(errors.As(err, &respErr) && respErr.ErrorCode == string(aztables.TableAlreadyExists)) {
				return err
			}
		}
	}
	if _, err := s.cleanup.Create(ctx, nil); err != nil {
		var respErr *azcore.ResponseError
		if !(errors.As(err, &respErr) && respErr.ErrorCode == "QueueAlreadyExists") {
			return err
		}
	}
	return nil
}

// Ping verifies the table service is reachable.
func (s *Storage) Ping(ctx context.Context) error {
	_, err := s.svc.GetProperties(ctx, nil)
	return err
}

func isNotFound(err error) bool {
	var respErr *azcore.ResponseError
	return errors.As(err, &respErr) && respErr.StatusCode == http.StatusNotFound
}

type boardEntity struct {
	aztables.Entity
	Name      string `json:"Name"`
	Icon      string `json:"Icon"`
	CreatedAt string `json:"CreatedAt"`
	UpdatedAt string `json:"UpdatedAt"`
}

// itemEntity is the stored shape of an item. Table properties are scalar, so
// the list-valued fields are kept as JSON-encoded strings.
type itemEntity struct {
	aztables.Entity
	BoardId         string `json:"BoardId"`
	Name            string `json:"Name"`
	Status          string `json:"Status"`
	Priority        string `json:"Priority"`
	Assignee        string `json:"Assignee"`
	ProjectManagers string `json:"ProjectManagers"`
	Tags            string `json:"Tags"`
	DueDate         string `json:"DueDate"`
	Progress        int    `json:"Progress"`
	Description     string `json:"Description"`
	CreatedAt       string `json:"CreatedAt"`
	UpdatedAt       string `json:"UpdatedAt"`
}

func encodeBoardEntity(b domain.Board) ([]byte, error) {
	return json.Marshal(boardEntity{
		Entity:    aztables.Entity{PartitionKey: boardPartition, RowKey: b.ID},
		Name:      b.Name,
		Icon:      b.Icon,
		CreatedAt: b.CreatedAt.Format(timeFormat),
		UpdatedAt: b.UpdatedAt.Format(timeFormat),
	})
}

func decodeBoardEntity(data []byte) (domain.Board, error) {
	var ent boardEntity
	if err := json.Unmarshal(data, &ent); err != nil {
		return domain.Board{}, err
	}
	return domain.Board{
		ID:        ent.RowKey,
		Name:      ent.Name,
		Icon:      ent.Icon,
		CreatedAt: parseEntityTime(ent.CreatedAt),
		UpdatedAt: parseEntityTime(ent.UpdatedAt),
	}, nil
}

func encodeItemEntity(i domain.Item) ([]byte, error) {
	return json.Marshal(itemEntity{
		Entity:          aztables.Entity{PartitionKey: itemPartition, RowKey: i.ID},
		BoardId:         i.BoardID,
		Name:            i.Name,
		Status:          string(i.Status),
		Priority:        string(i.Priority),
		Assignee:        encodeList(i.Assignee),
		ProjectManagers: encodeList(i.ProjectManagers),
		Tags:            encodeList(i.Tags),
		DueDate:         i.DueDate,
		Progress:        i.Progress,
		Description:     i.Description,
		CreatedAt:       i.CreatedAt.Format(timeFormat),
		UpdatedAt:       i.UpdatedAt.Format(timeFormat),
	})
}

func decodeItemEntity(data []byte) (domain.Item, error) {
	var ent itemEntity
	if err := json.Unmarshal(data, &ent); err != nil {
		return domain.Item{}, err
	}
	return domain.Item{
		ID:              ent.RowKey,
		BoardID:         ent.BoardId,
		Name:            ent.Name,
		Status:          domain.Status(ent.Status),
		Priority:        domain.Priority(ent.Priority),
		Assignee:        decodeList(ent.Assignee),
		ProjectManagers: decodeList(ent.ProjectManagers),
		Tags:            decodeList(ent.Tags),
		DueDate:         ent.DueDate,
		Progress:        ent.Progress,
		Description:     ent.Description,
		CreatedAt:       parseEntityTime(ent.CreatedAt),
		UpdatedAt:       parseEntityTime(ent.UpdatedAt),
	}, nil
}

func encodeList(values []string) string {
	if values == nil {
		values = []string{}
	}
	data, err := json.Marshal(values)
	if err != nil {
		return "[]"
	}
	return string(data)
}

func decodeList(data string) []string {
	if data == "" {
		return []string{}
	}
	var values []string
	if err := json.Unmarshal([]byte(data), &values); err != nil || values == nil {
		return []string{}
	}
	return values
}

func parseEntityTime(value string) time.Time {
	t, err := time.Parse(timeFormat, value)
	if err != nil {
		return time.Time{}
	}
	return t
}
