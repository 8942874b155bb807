package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	matchlight "github.com/raphaelgruber/matchlight-go"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

var (
	recordProject  string
	recordName     string
	recordDesc     string
	recordMinScore int
	recordForce    bool
	piiFile        string
	piiConcurrency int
	piiInput       piiEntry
)

// piiEntry is one PII record in a --file batch.
type piiEntry struct {
	Description  string `yaml:"description"`
	UserRecordID string `yaml:"user_record_id"`
	FirstName    string `yaml:"first_name"`
	MiddleName   string `yaml:"middle_name"`
	LastName     string `yaml:"last_name"`
	Email        string `yaml:"email"`
	SSN          string `yaml:"ssn"`
	Address      string `yaml:"address"`
	City         string `yaml:"city"`
	State        string `yaml:"state"`
	Zipcode      string `yaml:"zipcode"`
	Phone        string `yaml:"phone"`
}

func (e piiEntry) record() matchlight.PIIRecord {
	return matchlight.PIIRecord{
		Description:  e.Description,
		UserRecordID: e.UserRecordID,
		FirstName:    e.FirstName,
		MiddleName:   e.MiddleName,
		LastName:     e.LastName,
		Email:        e.Email,
		SSN:          e.SSN,
		Address:      e.Address,
		City:         e.City,
		State:        e.State,
		Zipcode:      e.Zipcode,
		Phone:        e.Phone,
	}
}

var recordsCmd = &cobra.Command{
	Use:   "records",
	Short: "Manage fingerprinted records",
	RunE:  runRecordsList,
}

var recordsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List records, optionally of one project",
	Args:  cobra.NoArgs,
	RunE:  runRecordsList,
}

var recordsAddDocumentCmd = &cobra.Command{
	Use:   "add-document <file>",
	Short: "Fingerprint a text document and add it to a project",
	Args:  cobra.ExactArgs(1),
	RunE:  runRecordsAddDocument,
}

var recordsAddSourceCmd = &cobra.Command{
	Use:   "add-source <file>",
	Short: "Fingerprint a source file and add it to a project",
	Args:  cobra.ExactArgs(1),
	RunE:  runRecordsAddSource,
}

var recordsAddPIICmd = &cobra.Command{
	Use:   "add-pii",
	Short: "Fingerprint PII and add it to a project",
	Long: `Fingerprint PII locally and upload the fingerprints. Only blinded
forms of names and email addresses are sent.

Pass a single record with flags, or a YAML list of records with --file:

  - first_name: Kevin
    last_name: Fitzgerald
    email: familybird@terbiumlabs.com
    phone: 804-222-1111`,
	Args: cobra.NoArgs,
	RunE: runRecordsAddPII,
}

var recordsDeleteCmd = &cobra.Command{
	Use:   "delete <record-id>",
	Short: "Delete a record",
	Args:  cobra.ExactArgs(1),
	RunE:  runRecordsDelete,
}

func init() {
	recordsListCmd.Flags().StringVarP(&recordProject, "project", "p", "", "upload token of the project")

	for _, c := range []*cobra.Command{recordsAddDocumentCmd, recordsAddSourceCmd, recordsAddPIICmd} {
		c.Flags().StringVarP(&recordProject, "project", "p", "", "upload token of the project (required)")
		_ = c.MarkFlagRequired("project")
	}
	for _, c := range []*cobra.Command{recordsAddDocumentCmd, recordsAddSourceCmd} {
		c.Flags().StringVar(&recordName, "name", "", "record name (default: file name)")
		c.Flags().StringVar(&recordDesc, "desc", "", "record description")
		c.Flags().IntVar(&recordMinScore, "min-score", 0, "minimum match score to alert on (0 = service default)")
	}

	f := recordsAddPIICmd.Flags()
	f.StringVar(&piiFile, "file", "", "YAML file with a list of records")
	f.IntVar(&piiConcurrency, "concurrency", 4, "parallel uploads for --file")
	f.StringVar(&piiInput.Description, "desc", "", "record description")
	f.StringVar(&piiInput.UserRecordID, "user-record-id", "", "your own id for the record")
	f.StringVar(&piiInput.FirstName, "first-name", "", "")
	f.StringVar(&piiInput.MiddleName, "middle-name", "", "")
	f.StringVar(&piiInput.LastName, "last-name", "", "")
	f.StringVar(&piiInput.Email, "email", "", "")
	f.StringVar(&piiInput.SSN, "ssn", "", "")
	f.StringVar(&piiInput.Address, "address", "", "")
	f.StringVar(&piiInput.City, "city", "", "")
	f.StringVar(&piiInput.State, "state", "", "")
	f.StringVar(&piiInput.Zipcode, "zipcode", "", "")
	f.StringVar(&piiInput.Phone, "phone", "", "")

	recordsDeleteCmd.Flags().BoolVarP(&recordForce, "force", "f", false, "skip confirmation")

	recordsCmd.AddCommand(recordsListCmd, recordsAddDocumentCmd, recordsAddSourceCmd, recordsAddPIICmd, recordsDeleteCmd)
}

func runRecordsList(cmd *cobra.Command, args []string) error {
	var project matchlight.ProjectRef
	if recordProject != "" {
		project = matchlight.UploadToken(recordProject)
	}
	records, err := ml.Records.Filter(context.Background(), project)
	if err != nil {
		return fmt.Errorf("list records: %w", err)
	}
	if len(records) == 0 {
		fmt.Println("No records.")
		return nil
	}

	fmt.Printf("%-36s %-19s %s\n", "ID", "CREATED", "NAME")
	fmt.Printf("%-36s %-19s %s\n", "--", "-------", "----")
	for _, r := range records {
		fmt.Printf("%-36s %-19s %s\n", r.ID, r.Created().Format(time.DateTime), r.Name)
	}
	return nil
}

// addContentFunc is RecordService.AddDocument or RecordService.AddSourceCode.
type addContentFunc func(context.Context, matchlight.ProjectRef, matchlight.ContentRecord) (*matchlight.Record, error)

func runRecordsAddDocument(cmd *cobra.Command, args []string) error {
	return addContentRecord(args[0], ml.Records.AddDocument)
}

func runRecordsAddSource(cmd *cobra.Command, args []string) error {
	return addContentRecord(args[0], ml.Records.AddSourceCode)
}

func addContentRecord(path string, add addContentFunc) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	rec := matchlight.ContentRecord{
		Name:        recordName,
		Description: recordDesc,
		Content:     content,
	}
	if rec.Name == "" {
		rec.Name = filepath.Base(path)
	}
	if recordMinScore > 0 {
		rec.MinScore = &recordMinScore
	}

	r, err := add(context.Background(), matchlight.UploadToken(recordProject), rec)
	if err != nil {
		return fmt.Errorf("add record: %w", err)
	}
	printRecordAdded(r, rec.Name)
	return nil
}

func runRecordsAddPII(cmd *cobra.Command, args []string) error {
	entries := []piiEntry{piiInput}
	if piiFile != "" {
		data, err := os.ReadFile(piiFile)
		if err != nil {
			return fmt.Errorf("read %s: %w", piiFile, err)
		}
		entries = nil
		if err := yaml.Unmarshal(data, &entries); err != nil {
			return fmt.Errorf("parse %s: %w", piiFile, err)
		}
	}

	project := matchlight.UploadToken(recordProject)
	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(max(piiConcurrency, 1))

	var mu sync.Mutex
	for i, e := range entries {
		g.Go(func() error {
			r, err := ml.Records.AddPII(ctx, project, e.record())
			if err != nil {
				return fmt.Errorf("add pii record %d: %w", i+1, err)
			}
			mu.Lock()
			defer mu.Unlock()
			printRecordAdded(r, fmt.Sprintf("#%d", i+1))
			return nil
		})
	}
	return g.Wait()
}

func runRecordsDelete(cmd *cobra.Command, args []string) error {
	id := args[0]
	if !recordForce {
		ok, err := confirm(fmt.Sprintf("This will delete record %s and stop monitoring it.", id))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("Aborted.")
			return nil
		}
	}
	if err := ml.Records.Delete(context.Background(), matchlight.RecordID(id)); err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	fmt.Printf("Deleted record %s\n", id)
	return nil
}

func printRecordAdded(r *matchlight.Record, name string) {
	if r == nil {
		// Uploaded but not listed yet.
		fmt.Printf("%s %s\n", defaultTheme.completedStyle().Render("✓ Uploaded"), name)
		return
	}
	fmt.Printf("%s %s %s\n", defaultTheme.completedStyle().Render("✓ Added"), r.ID, r.Name)
}
