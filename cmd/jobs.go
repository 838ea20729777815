package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"tiletagger/internal/clix"
	"tiletagger/internal/models"

	"github.com/google/uuid"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

// jobsCmd lists background analysis jobs.
var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "List background analysis jobs",
	RunE: func(cmd *cobra.Command, args []string) error {
		appInstance, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return err
		}

		pagination, err := clix.ParsePagination(cmd.Flags())
		if err != nil {
			return fmt.Errorf("invalid pagination flags: %w", err)
		}

		jobs, err := appInstance.JobStore.ListJobs(cmd.Context(), pagination.Limit, pagination.Offset)
		if err != nil {
			return fmt.Errorf("failed to list jobs: %w", err)
		}
		if len(jobs) == 0 {
			fmt.Println("No jobs found.")
			return nil
		}

		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"Job ID", "Tileset", "Status", "Progress", "Updated At"})
		table.SetBorder(false)
		table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
		table.SetAlignment(tablewriter.ALIGN_LEFT)

		for _, job := range jobs {
			progress := "-"
			if job.Total > 0 {
				progress = strconv.Itoa(job.Processed) + "/" + strconv.Itoa(job.Total)
			}
			table.Append([]string{
				job.JobID.String(),
				job.TilesetPath,
				job.Status,
				progress,
				job.UpdatedAt.Format("2006-01-02 15:04:05"),
			})
		}
		table.Render()
		return nil
	},
}

// jobsShowCmd prints one job including its stored results.
var jobsShowCmd = &cobra.Command{
	Use:   "show <job-id>",
	Short: "Show one job's status and results",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		appInstance, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return err
		}
		jobID, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid job ID %q: %w", args[0], err)
		}

		job, err := appInstance.JobStore.GetJob(cmd.Context(), jobID)
		if err != nil {
			return fmt.Errorf("failed to load job: %w", err)
		}

		fmt.Printf("Job:      %s\n", job.JobID)
		fmt.Printf("Tileset:  %s\n", job.TilesetPath)
		fmt.Printf("Status:   %s\n", job.Status)
		fmt.Printf("Progress: %d/%d\n", job.Processed, job.Total)
		if job.Error != nil {
			fmt.Printf("Error:    %s\n", *job.Error)
		}
		if len(job.Results) > 0 {
			var results []models.TileAnalysis
			if err := json.Unmarshal(job.Results, &results); err != nil {
				return fmt.Errorf("failed to decode stored results: %w", err)
			}
			fmt.Printf("Results:  %d tiles\n", len(results))
			for _, r := range results {
				for _, tag := range r.Tags {
					fmt.Printf("  tile %d: %s (%.2f)\n", r.TileID, tag.Key(), tag.Confidence)
				}
			}
		}
		return nil
	},
}

// jobsCancelCmd asks the worker to stop a running job.
var jobsCancelCmd = &cobra.Command{
	Use:   "cancel <job-id>",
	Short: "Request cancellation of a running job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		appInstance, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return err
		}
		jobID, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid job ID %q: %w", args[0], err)
		}

		job, err := appInstance.JobStore.GetJob(cmd.Context(), jobID)
		if err != nil {
			return fmt.Errorf("failed to load job: %w", err)
		}
		switch job.Status {
		case models.JobStatusEnqueued, models.JobStatusProcessing:
			if err := appInstance.JobStore.UpdateJobStatus(cmd.Context(), jobID, models.JobStatusCancelRequested, ""); err != nil {
				return fmt.Errorf("failed to request cancellation: %w", err)
			}
			fmt.Printf("Cancellation requested for job %s\n", jobID)
		case models.JobStatusCancelRequested:
			fmt.Printf("Job %s is already flagged for cancellation\n", jobID)
		default:
			return fmt.Errorf("job %s is already %s", jobID, job.Status)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(jobsCmd)
	jobsCmd.AddCommand(jobsShowCmd)
	jobsCmd.AddCommand(jobsCancelCmd)

	jobsCmd.Flags().Int("limit", 20, "Maximum number of jobs to list")
	jobsCmd.Flags().Int("offset", 0, "Number of jobs to skip")
}
