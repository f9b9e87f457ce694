package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/locvowork/employee_records/apigateway/internal/domain"
	"github.com/olivere/elastic/v7"
)

// EmployeeDoc mirrors domain.Employee for ES storage.
type EmployeeDoc struct {
	StoreID     string   `json:"store_id"`
	EmployeeID  string   `json:"employee_id"`
	Name        string   `json:"name"`
	Department  string   `json:"department"`
	Salary      float64  `json:"salary"`
	JoiningDate string   `json:"joining_date"`
	Skills      []string `json:"skills"`
}

func newEmployeeDoc(e domain.Employee) EmployeeDoc {
	skills := e.Skills
	if skills == nil {
		skills = []string{}
	}
	return EmployeeDoc{
		StoreID:     e.ID,
		EmployeeID:  e.EmployeeID,
		Name:        e.Name,
		Department:  e.Department,
		Salary:      e.Salary,
		JoiningDate: domain.DateOf(e.JoiningDate).String(),
		Skills:      skills,
	}
}

func (d EmployeeDoc) toDomain() (domain.Employee, error) {
	joined, err := domain.ParseDate(d.JoiningDate)
	if err != nil {
		return domain.Employee{}, err
	}
	skills := d.Skills
	if skills == nil {
		skills = []string{}
	}
	return domain.Employee{
		ID:          d.StoreID,
		EmployeeID:  d.EmployeeID,
		Name:        d.Name,
		Department:  d.Department,
		Salary:      d.Salary,
		JoiningDate: joined.Time(),
		Skills:      skills,
	}, nil
}

const employeeIndexMapping = `{
	"mappings": {
		"properties": {
			"store_id":     {"type": "keyword"},
			"employee_id":  {"type": "keyword"},
			"name":         {"type": "text"},
			"department":   {"type": "keyword"},
			"salary":       {"type": "double"},
			"joining_date": {"type": "date", "format": "yyyy-MM-dd"},
			"skills":       {"type": "keyword"}
		}
	}
}`

// searchLimit caps the hits returned by a name search.
const searchLimit = 100

// ElasticSearchClient wraps olivere/elastic client.
type ElasticSearchClient struct {
	client *elastic.Client
	index  string
}

// NewElasticSearchClient creates a new client for Elasticsearch 7.x. Extra
// options are appended after the defaults.
func NewElasticSearchClient(url, index string, opts ...elastic.ClientOptionFunc) (*ElasticSearchClient, error) {
	options := append([]elastic.ClientOptionFunc{
		elastic.SetURL(url),
		elastic.SetSniff(false), // Essential when using Docker or cloud
	}, opts...)

	client, err := elastic.NewClient(options...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Elasticsearch client: %w", err)
	}
	return &ElasticSearchClient{client: client, index: index}, nil
}

// EnsureIndex creates the index with its mapping unless it exists.
func (es *ElasticSearchClient) EnsureIndex(ctx context.Context) error {
	exists, err := es.client.IndexExists(es.index).Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to check index %s: %w", es.index, err)
	}
	if exists {
		return nil
	}
	if _, err := es.client.CreateIndex(es.index).BodyString(employeeIndexMapping).Do(ctx); err != nil {
		return fmt.Errorf("failed to create index %s: %w", es.index, err)
	}
	return nil
}

// IndexEmployee indexes an employee document using employee_id as ID.
func (es *ElasticSearchClient) IndexEmployee(ctx context.Context, e domain.Employee) error {
	_, err := es.client.Index().
		Index(es.index).
		Id(e.EmployeeID).
		BodyJson(newEmployeeDoc(e)).
		Refresh("true"). // Make changes immediately searchable
		Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to index employee %s: %w", e.EmployeeID, err)
	}
	return nil
}

// DeleteEmployee removes the document; a missing document is not an error.
func (es *ElasticSearchClient) DeleteEmployee(ctx context.Context, employeeID string) error {
	_, err := es.client.Delete().
		Index(es.index).
		Id(employeeID).
		Refresh("true").
		Do(ctx)
	if err != nil && !elastic.IsNotFound(err) {
		return fmt.Errorf("failed to delete employee %s: %w", employeeID, err)
	}
	return nil
}

// SearchByName performs a full-text match on name.
func (es *ElasticSearchClient) SearchByName(ctx context.Context, name string) ([]domain.Employee, error) {
	searchResult, err := es.client.Search().
		Index(es.index).
		Query(elastic.NewMatchQuery("name", name)).
		Size(searchLimit).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	employees := []domain.Employee{}
	for _, hit := range searchResult.Hits.Hits {
		var doc EmployeeDoc
		if err := json.Unmarshal(hit.Source, &doc); err != nil {
			return nil, fmt.Errorf("failed to decode hit %s: %w", hit.Id, err)
		}
		e, err := doc.toDomain()
		if err != nil {
			return nil, fmt.Errorf("failed to decode hit %s: %w", hit.Id, err)
		}
		employees = append(employees, e)
	}
	return employees, nil
}

// BulkIndexEmployees efficiently indexes multiple employees.
func (es *ElasticSearchClient) BulkIndexEmployees(ctx context.Context, employees []domain.Employee) error {
	bulkRequest := es.client.Bulk()

	for _, e := range employees {
		req := elastic.NewBulkIndexRequest().
			Index(es.index).
			Id(e.EmployeeID).
			Doc(newEmployeeDoc(e))
		bulkRequest = bulkRequest.Add(req)
	}

	if bulkRequest.NumberOfActions() == 0 {
		return nil
	}

	bulkResponse, err := bulkRequest.Refresh("true").Do(ctx)
	if err != nil {
		return fmt.Errorf("bulk index failed: %w", err)
	}

	if failed := bulkResponse.Failed(); len(failed) > 0 {
		reason := fmt.Sprintf("status %d", failed[0].Status)
		if failed[0].Error != nil {
			reason = failed[0].Error.Reason
		}
		return fmt.Errorf("bulk item %s failed: %s", failed[0].Id, reason)
	}
	return nil
}

// ClearIndex removes every document from the index.
func (es *ElasticSearchClient) ClearIndex(ctx context.Context) error {
	_, err := es.client.DeleteByQuery(es.index).
		Query(elastic.NewMatchAllQuery()).
		Refresh("true").
		Do(ctx)
	if err != nil && !elastic.IsNotFound(err) {
		return fmt.Errorf("failed to clear index %s: %w", es.index, err)
	}
	return nil
}

// Stop releases the client's background resources.
func (es *ElasticSearchClient) Stop() {
	es.client.Stop()
}
