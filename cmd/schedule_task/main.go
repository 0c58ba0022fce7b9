package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"school_payments/internal/models"
	"school_payments/internal/services"
	"school_payments/internal/tasks"
)

// Enqueues a reconciliation run for the worker, e.g. a nightly repair pass:
//
//	schedule_task -task reconcile_repair -school all \
//	  -due "2026-09-01 02:00" -recurring "FREQ=DAILY"
func main() {
	taskName := flag.String("task", "", "Task name: reconcile_sync, reconcile_repair or reconcile_report (mandatory)")
	school := flag.String("school", "all", "School ID to scope the run to, or 'all'")
	dueStr := flag.String("due", "", "Due date (mandatory, format: 2006-01-02 15:04 or RFC3339)")
	recurring := flag.String("recurring", "", "RRULE recurrence (optional; makes the task recurring)")
	maxAttempt := flag.Int("max_attempt", 3, "Max attempts")

	flag.Parse()

	switch *taskName {
	case models.TaskReconcileSync, models.TaskReconcileRepair, models.TaskReconcileReport:
	default:
		fmt.Println("Usage: schedule_task -task <name> -due <YYYY-MM-DD HH:MM> [options]")
		flag.PrintDefaults()
		os.Exit(1)
	}
	if *dueStr == "" {
		fmt.Println("-due is mandatory")
		os.Exit(1)
	}

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment")
	}

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	db, err := services.InitDB(dsn)
	if err != nil {
		log.Fatalf("Failed to connect DB: %v", err)
	}

	due, err := time.Parse(time.RFC3339, *dueStr)
	if err != nil {
		due, err = time.ParseInLocation("2006-01-02 15:04", *dueStr, time.Local)
		if err != nil {
			log.Fatalf("Invalid due date format. Use '2006-01-02 15:04' (Local) or RFC3339: %v", err)
		}
	}

	schoolID := *school
	if schoolID == "all" {
		schoolID = ""
	}

	var recurringPtr *string
	if *recurring != "" {
		recurringPtr = recurring
	}

	task := tasks.BuildScheduledTask(*taskName, schoolID, due, recurringPtr, *maxAttempt)
	if err := db.Create(task).Error; err != nil {
		log.Fatalf("Failed to create task: %v", err)
	}

	fmt.Printf("Successfully created task ID: %d\n", task.ID)
	fmt.Printf("Task: %s\nDue: %s\nType: %s\n", task.TaskName, task.Due, task.TaskType)
}
