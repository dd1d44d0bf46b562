package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/sestra24/recruitment-service/internal/cache"
	"github.com/sestra24/recruitment-service/internal/models"
	"github.com/sestra24/recruitment-service/internal/repositories"
	"github.com/sestra24/recruitment-service/internal/utils"
)

// QuestionImportService loads the qualification question bank from an admin
// spreadsheet and exports answer sheets for review.
type QuestionImportService interface {
	ImportXLSX(ctx context.Context, reader io.Reader) (*models.ImportSummary, error)
	ExportAnswersXLSX(ctx context.Context, applicationID string) ([]byte, error)
}

type questionImportService struct {
	repo   repositories.Repository
	cache  cache.CacheService
	logger utils.Logger
}

func NewQuestionImportService(repo repositories.Repository, cacheService cache.CacheService, logger utils.Logger) QuestionImportService {
	return &questionImportService{
		repo:   repo,
		cache:  cacheService,
		logger: logger,
	}
}

// ImportXLSX parses the first sheet of an xlsx workbook into test questions.
// Expected columns: question_text, options (pipe-separated), correct_answer,
// is_case_study, order. Valid rows are saved in one transaction; rejected rows
// are reported per row without aborting the import.
func (s *questionImportService) ImportXLSX(ctx context.Context, reader io.Reader) (*models.ImportSummary, error) {
	started := time.Now()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open xlsx file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, NewBusinessRuleError("import_empty_workbook", "xlsx file has no sheets", nil)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read xlsx rows: %w", err)
	}
	if len(rows) < 2 {
		return nil, NewBusinessRuleError("import_no_data", "xlsx must have a header row and at least one data row", nil)
	}

	headerMap := make(map[string]int)
	for i, header := range rows[0] {
		headerMap[strings.ToLower(strings.TrimSpace(header))] = i
	}
	for _, col := range []string{"question_text", "options", "correct_answer"} {
		if _, ok := headerMap[col]; !ok {
			return nil, NewBusinessRuleError("import_missing_column", fmt.Sprintf("missing required column: %s", col), nil)
		}
	}

	summary := &models.ImportSummary{TotalRows: len(rows) - 1}

	var questions []*models.TestQuestion
	for rowIndex, row := range rows[1:] {
		question, rowErrors := s.parseRow(row, headerMap, rowIndex+2, rowIndex)
		if len(rowErrors) > 0 {
			summary.Errors = append(summary.Errors, rowErrors...)
			summary.ErrorCount++
		} else {
			questions = append(questions, question)
			summary.SuccessCount++
		}
		summary.ProcessedRows++
	}

	if len(questions) > 0 {
		err := s.repo.WithTx(ctx, func(txRepo repositories.Repository) error {
			return txRepo.Question().CreateBatch(ctx, questions)
		})
		if err != nil {
			return nil, fmt.Errorf("failed to save questions: %w", err)
		}

		for _, q := range questions {
			summary.CreatedQuestions = append(summary.CreatedQuestions, q.ID)
		}

		// Attempts started after this point must see the new bank.
		if err := s.cache.Delete(ctx, questionCacheKey); err != nil {
			s.logger.Warn("Failed to invalidate question cache", "error", err)
		}
	}

	summary.ProcessingTime = time.Since(started)

	s.logger.Info("Question import completed",
		"total_rows", summary.TotalRows,
		"success_count", summary.SuccessCount,
		"error_count", summary.ErrorCount)

	return summary, nil
}

func (s *questionImportService) parseRow(row []string, headerMap map[string]int, rowNum, position int) (*models.TestQuestion, []models.ImportValidationError) {
	var rowErrors []models.ImportValidationError

	getColumn := func(name string) string {
		if index, ok := headerMap[name]; ok && index < len(row) {
			return strings.TrimSpace(row[index])
		}
		return ""
	}

	text := getColumn("question_text")
	if text == "" {
		rowErrors = append(rowErrors, models.ImportValidationError{
			Row: rowNum, Field: "question_text", Message: "required field",
		})
	}

	var options []string
	for _, part := range strings.Split(getColumn("options"), "|") {
		if part = strings.TrimSpace(part); part != "" {
			options = append(options, part)
		}
	}
	if len(options) < 2 {
		rowErrors = append(rowErrors, models.ImportValidationError{
			Row: rowNum, Field: "options", Message: "must have at least 2 pipe-separated options",
		})
	}

	correct := getColumn("correct_answer")
	if correct == "" {
		rowErrors = append(rowErrors, models.ImportValidationError{
			Row: rowNum, Field: "correct_answer", Message: "required field",
		})
	} else if len(options) > 0 {
		found := false
		for _, o := range options {
			if o == correct {
				found = true
				break
			}
		}
		if !found {
			rowErrors = append(rowErrors, models.ImportValidationError{
				Row: rowNum, Field: "correct_answer", Message: "must match one of the options",
			})
		}
	}

	isCaseStudy := false
	if raw := getColumn("is_case_study"); raw != "" {
		parsed, err := strconv.ParseBool(strings.ToLower(raw))
		if err != nil {
			rowErrors = append(rowErrors, models.ImportValidationError{
				Row: rowNum, Field: "is_case_study", Message: "must be true or false",
			})
		}
		isCaseStudy = parsed
	}

	orderIndex := position
	if raw := getColumn("order"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			rowErrors = append(rowErrors, models.ImportValidationError{
				Row: rowNum, Field: "order", Message: "must be a non-negative integer",
			})
		} else {
			orderIndex = parsed
		}
	}

	if len(rowErrors) > 0 {
		return nil, rowErrors
	}

	encoded, err := models.NewQuestionOptions(options)
	if err != nil {
		return nil, []models.ImportValidationError{{
			Row: rowNum, Field: "options", Message: "failed to encode options",
		}}
	}

	questionType := models.QuestionSingleChoice
	if isCaseStudy {
		questionType = models.QuestionCaseStudy
	}

	return &models.TestQuestion{
		ID:            uuid.NewString(),
		QuestionText:  text,
		Options:       encoded,
		CorrectAnswer: correct,
		IsCaseStudy:   isCaseStudy,
		QuestionType:  questionType,
		OrderIndex:    orderIndex,
	}, nil
}

// ExportAnswersXLSX renders the candidate's recorded answer sheet for manual
// review.
func (s *questionImportService) ExportAnswersXLSX(ctx context.Context, applicationID string) ([]byte, error) {
	app, err := s.repo.Application().GetByID(ctx, applicationID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrApplicationNotFound
		}
		return nil, fmt.Errorf("failed to load application: %w", err)
	}

	answers, err := s.repo.Answer().GetByApplication(ctx, applicationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load answers: %w", err)
	}

	f := excelize.NewFile()
	sheetName := "Answers"

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to create xlsx sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headers := []string{"Question", "Selected Answer", "Correct Answer", "Is Correct", "Answered At"}
	for i, header := range headers {
		cell := fmt.Sprintf("%c1", 'A'+i)
		f.SetCellValue(sheetName, cell, header)
	}

	for rowIndex, answer := range answers {
		questionText := answer.QuestionID
		correctAnswer := ""
		if answer.Question.ID != "" {
			questionText = answer.Question.QuestionText
			correctAnswer = answer.Question.CorrectAnswer
		}

		row := []interface{}{
			questionText,
			answer.SelectedAnswer,
			correctAnswer,
			answer.IsCorrect,
			answer.AnsweredAt.Format("2006-01-02 15:04:05"),
		}
		for colIndex, value := range row {
			cell := fmt.Sprintf("%c%d", 'A'+colIndex, rowIndex+2)
			f.SetCellValue(sheetName, cell, value)
		}
	}

	f.SetCellValue(sheetName, fmt.Sprintf("A%d", len(answers)+3), fmt.Sprintf("Candidate: %s", app.FullName))
	if app.TestScore != nil {
		f.SetCellValue(sheetName, fmt.Sprintf("A%d", len(answers)+4), fmt.Sprintf("Score: %d", *app.TestScore))
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write xlsx file: %w", err)
	}

	return buf.Bytes(), nil
}
